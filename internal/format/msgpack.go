package format

import (
	"bytes"
	"errors"
	"io"

	"github.com/plc-ladder/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec is a compact binary snapshot using the JSON field names.
type MsgpackCodec struct{}

// NewMsgpackCodec creates a msgpack codec.
func NewMsgpackCodec() *MsgpackCodec { return &MsgpackCodec{} }

func (*MsgpackCodec) Name() string         { return "msgpack" }
func (*MsgpackCodec) Extensions() []string { return []string{".lpk", ".msgpack"} }
func (*MsgpackCodec) ContentType() string  { return "application/msgpack" }

// Encode writes p.
func (*MsgpackCodec) Encode(w io.Writer, p *models.Project) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(p)
}

// Decode reads a project.
func (*MsgpackCodec) Decode(r io.Reader) (*models.Project, error) {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	var p models.Project
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p.Rungs == nil {
		return nil, errors.New("invalid project format: missing or invalid rungs")
	}
	return &p, nil
}

// MarshalProject encodes p as msgpack.
func MarshalProject(p *models.Project) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewMsgpackCodec().Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalProject decodes a msgpack project.
func UnmarshalProject(data []byte) (*models.Project, error) {
	return NewMsgpackCodec().Decode(bytes.NewReader(data))
}
