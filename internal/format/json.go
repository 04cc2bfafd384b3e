package format

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/plc-ladder/backend/internal/models"
)

// JSONCodec is the native project format.
type JSONCodec struct{}

// NewJSONCodec creates a JSON codec.
func NewJSONCodec() *JSONCodec { return &JSONCodec{} }

func (*JSONCodec) Name() string         { return "json" }
func (*JSONCodec) Extensions() []string { return []string{".json"} }
func (*JSONCodec) ContentType() string  { return "application/json" }

// Encode writes p indented by two spaces.
func (*JSONCodec) Encode(w io.Writer, p *models.Project) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// Decode reads a project and rejects documents without a rungs array.
func (*JSONCodec) Decode(r io.Reader) (*models.Project, error) {
	var p models.Project
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, err
	}
	if p.Rungs == nil {
		return nil, errors.New("invalid project format: missing or invalid rungs")
	}
	if p.Name == "" {
		p.Name = p.Settings.Name()
	}
	return &p, nil
}
