package models

import "time"

// FileInfo represents metadata about a stored project file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format"` // "json", "ll", "st", "msgpack"
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"` // "stored", "imported"
}
