package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plc-ladder/backend/internal/format"
	"github.com/plc-ladder/backend/internal/models"
)

// ErrFileNotFound is returned for unknown file ids.
var ErrFileNotFound = errors.New("file not found")

// File statuses.
const (
	StatusStored   = "stored"
	StatusImported = "imported" // Opened in an editing session at least once
)

const indexFile = "index.json"

// Store defines the interface for project file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	SaveBytes(name string, data []byte) (*models.FileInfo, error)
	Replace(id string, data []byte) (*models.FileInfo, error)
	Read(id string) ([]byte, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.FileInfo, error)
	MarkImported(id string) error
	GetFilePath(id string) (string, error)
}

// LocalStore implements Store using the local filesystem. File metadata is
// kept in an index next to the files so the recent list survives restarts.
type LocalStore struct {
	mu       sync.RWMutex
	dataDir  string
	files    map[string]*models.FileInfo
	registry *format.Registry
}

// NewLocalStore creates a LocalStore in dataDir, loading any existing index.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	s := &LocalStore{
		dataDir:  dataDir,
		files:    make(map[string]*models.FileInfo),
		registry: format.GetGlobalRegistry(),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dataDir, indexFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	var infos []*models.FileInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return fmt.Errorf("decoding index: %w", err)
	}
	for _, info := range infos {
		if _, err := os.Stat(filepath.Join(s.dataDir, info.ID)); err != nil {
			fmt.Printf("[Storage] Dropping index entry %s: %v\n", info.ID, err)
			continue
		}
		s.files[info.ID] = info
	}
	fmt.Printf("[Storage] Loaded %d project files\n", len(s.files))
	return nil
}

// writeIndexLocked persists the metadata. Caller holds s.mu.
func (s *LocalStore) writeIndexLocked() error {
	infos := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	tmp := filepath.Join(s.dataDir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return os.Rename(tmp, filepath.Join(s.dataDir, indexFile))
}

func (s *LocalStore) formatOf(name string) string {
	if c, err := s.registry.ForFile(name); err == nil {
		return c.Name()
	}
	return ""
}

// Save saves a file to the local filesystem.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dataDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Format:     s.formatOf(name),
		Size:       size,
		UploadedAt: time.Now(),
		Status:     StatusStored,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info
	if err := s.writeIndexLocked(); err != nil {
		return nil, err
	}

	out := *info
	return &out, nil
}

// SaveBytes saves data as a new file.
func (s *LocalStore) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	return s.Save(name, bytes.NewReader(data))
}

// Replace overwrites the content of an existing file.
func (s *LocalStore) Replace(id string, data []byte) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	path := filepath.Join(s.dataDir, id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("replacing file: %w", err)
	}

	info.Size = int64(len(data))
	info.UploadedAt = time.Now()
	if err := s.writeIndexLocked(); err != nil {
		return nil, err
	}

	out := *info
	return &out, nil
}

// Read returns the content of a file.
func (s *LocalStore) Read(id string) ([]byte, error) {
	path, err := s.GetFilePath(id)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	out := *info
	return &out, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		out := *info
		list = append(list, &out)
	}

	// Sort by UploadedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	path := filepath.Join(s.dataDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return s.writeIndexLocked()
}

// Rename updates the display name of a file. The format follows the new
// extension.
func (s *LocalStore) Rename(id string, newName string) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	info.Name = newName
	info.Format = s.formatOf(newName)
	if err := s.writeIndexLocked(); err != nil {
		return nil, err
	}

	out := *info
	return &out, nil
}

// MarkImported records that a file was opened for editing.
func (s *LocalStore) MarkImported(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if info.Status == StatusImported {
		return nil
	}
	info.Status = StatusImported
	return s.writeIndexLocked()
}

// GetFilePath returns the path to a file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	return filepath.Join(s.dataDir, id), nil
}
