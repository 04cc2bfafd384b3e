package format

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/plc-ladder/backend/internal/models"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	programRegex  = regexp.MustCompile(`PROGRAM\s+(\w+)`)
	commentRegex  = regexp.MustCompile(`\(\*([\s\S]*?)\*\)`)
	authorRegex   = regexp.MustCompile(`Author:\s*(.*)`)
	descRegex     = regexp.MustCompile(`Description:\s*(.*)`)
)

// UnknownVar stands in for contacts and coils without an address.
const UnknownVar = "UnknownVar"

// STCodec writes an IEC structured-text program derived from contacts and
// coils. Reading recovers only the header: name, author and description.
type STCodec struct{}

// NewSTCodec creates a structured-text codec.
func NewSTCodec() *STCodec { return &STCodec{} }

func (*STCodec) Name() string         { return "st" }
func (*STCodec) Extensions() []string { return []string{".st"} }
func (*STCodec) ContentType() string  { return "text/plain" }

// Encode writes the program.
func (*STCodec) Encode(w io.Writer, p *models.Project) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "PROGRAM %s\n", whitespaceRun.ReplaceAllString(p.Name, "_"))
	fmt.Fprintf(bw, "(*\n  Author: %s\n", p.Settings.Author())
	fmt.Fprintf(bw, "  Description: %s\n*)\n\n", p.Settings.Description())

	bw.WriteString("VAR\n")
	for _, addr := range addresses(p) {
		fmt.Fprintf(bw, "  %s : BOOL;\n", addr)
	}
	bw.WriteString("END_VAR\n\n")

	for i, rung := range p.Rungs {
		fmt.Fprintf(bw, "(* Rung %d *)\n", i+1)
		bw.WriteString(rungToST(rung))
		bw.WriteString("\n\n")
	}
	bw.WriteString("END_PROGRAM\n")
	return bw.Flush()
}

// addresses returns every component address in first-seen order.
func addresses(p *models.Project) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rung := range p.Rungs {
		for _, c := range rung.Components {
			addr := c.StringVar("address")
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

func rungToST(rung models.Rung) string {
	var conditions, coils []string
	for _, c := range rung.Components {
		name := c.StringVar("address")
		if name == "" {
			name = UnknownVar
		}
		switch {
		case strings.Contains(c.Type, "CONTACT"):
			if c.Type == models.TypeContactNO {
				conditions = append(conditions, name)
			} else {
				conditions = append(conditions, "NOT("+name+")")
			}
		case c.Type == models.TypeCoil:
			coils = append(coils, name)
		}
	}
	if len(conditions) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "IF %s THEN\n", strings.Join(conditions, " AND "))
	for _, coil := range coils {
		fmt.Fprintf(&b, "  %s := TRUE;\n", coil)
	}
	b.WriteString("END_IF;")
	return b.String()
}

// Decode recovers the program name and header comment and yields one blank
// rung.
func (*STCodec) Decode(r io.Reader) (*models.Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content := string(data)

	p := newProject()
	p.Rungs = append(p.Rungs, models.Rung{Segments: []models.GridSegment{}, Components: []models.Component{}})

	if m := programRegex.FindStringSubmatch(content); m != nil {
		p.Name = strings.ReplaceAll(m[1], "_", " ")
		p.Settings[models.SettingName] = p.Name
	}
	if m := commentRegex.FindStringSubmatch(content); m != nil {
		comment := m[1]
		if a := authorRegex.FindStringSubmatch(comment); a != nil {
			p.Settings[models.SettingAuthor] = strings.TrimSpace(a[1])
		}
		if d := descRegex.FindStringSubmatch(comment); d != nil {
			p.Settings[models.SettingDescription] = strings.TrimSpace(d[1])
		}
	}
	return p, nil
}
