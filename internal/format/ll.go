package format

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/plc-ladder/backend/internal/models"
)

// LLCodec reads and writes the line-oriented ladder listing:
//
//	PROJECT: <name>
//	AUTHOR: <author>
//	DESCRIPTION: <description>
//
//	RUNG 1
//	  CONTACT_NO 1 {"address":"I0"}
//	END_RUNG
type LLCodec struct {
	widthOf func(componentType string) int
}

// NewLLCodec creates an LL codec. The listing does not carry component
// widths; widthOf, when set, restores them from the component type on read.
func NewLLCodec(widthOf func(componentType string) int) *LLCodec {
	return &LLCodec{widthOf: widthOf}
}

func (*LLCodec) Name() string         { return "ll" }
func (*LLCodec) Extensions() []string { return []string{".ll"} }
func (*LLCodec) ContentType() string  { return "application/octet-stream" }

// Encode writes the listing.
func (*LLCodec) Encode(w io.Writer, p *models.Project) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "PROJECT: %s\n", p.Name)
	fmt.Fprintf(bw, "AUTHOR: %s\n", p.Settings.Author())
	fmt.Fprintf(bw, "DESCRIPTION: %s\n\n", p.Settings.Description())

	for i, rung := range p.Rungs {
		fmt.Fprintf(bw, "RUNG %d\n", i+1)
		for _, c := range rung.Components {
			fmt.Fprintf(bw, "  %s %d", c.Type, c.Position)
			if len(c.Variables) > 0 {
				vars, err := json.Marshal(c.Variables)
				if err != nil {
					return fmt.Errorf("rung %d: %w", i+1, err)
				}
				bw.WriteByte(' ')
				bw.Write(vars)
			}
			bw.WriteByte('\n')
		}
		bw.WriteString("END_RUNG\n\n")
	}
	return bw.Flush()
}

// Decode reads a listing. RUNG headers may omit the rung number, and a
// listing without rungs yields one blank rung.
func (c *LLCodec) Decode(r io.Reader) (*models.Project, error) {
	p := newProject()

	var current *models.Rung
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "PROJECT:"):
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "PROJECT:"))
			p.Settings[models.SettingName] = p.Name
		case strings.HasPrefix(line, "AUTHOR:"):
			p.Settings[models.SettingAuthor] = strings.TrimSpace(strings.TrimPrefix(line, "AUTHOR:"))
		case strings.HasPrefix(line, "DESCRIPTION:"):
			p.Settings[models.SettingDescription] = strings.TrimSpace(strings.TrimPrefix(line, "DESCRIPTION:"))
		case isRungHeader(line):
			current = &models.Rung{Segments: []models.GridSegment{}, Components: []models.Component{}}
		case line == "END_RUNG" && current != nil:
			p.Rungs = append(p.Rungs, *current)
			current = nil
		case current != nil && line != "":
			comp, err := c.parseComponent(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			current.Components = append(current.Components, comp)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Rungs) == 0 {
		p.Rungs = append(p.Rungs, models.Rung{Segments: []models.GridSegment{}, Components: []models.Component{}})
	}
	return p, nil
}

func isRungHeader(line string) bool {
	if line == "RUNG" {
		return true
	}
	rest, ok := strings.CutPrefix(line, "RUNG ")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(rest))
	return err == nil
}

func (c *LLCodec) parseComponent(line string) (models.Component, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return models.Component{}, fmt.Errorf("expected <type> <position>, got %q", line)
	}
	pos, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return models.Component{}, fmt.Errorf("invalid position %q", parts[1])
	}

	comp := models.Component{
		Type:     parts[0],
		Position: int(math.Floor(pos + 0.5)),
	}
	if len(parts) == 3 {
		if raw := strings.TrimSpace(parts[2]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &comp.Variables); err != nil {
				return models.Component{}, fmt.Errorf("invalid variables: %w", err)
			}
		}
	}
	if c.widthOf != nil {
		comp.Width = c.widthOf(comp.Type)
	}
	return comp, nil
}
