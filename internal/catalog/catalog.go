// Package catalog loads the component palette offered to the editor.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/plc-ladder/backend/internal/grid"
	"github.com/plc-ladder/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML string

// FunctionBlockCategory is the category user function blocks are listed in.
const FunctionBlockCategory = "Function Blocks"

// FunctionBlockWidth is the width of every user function block instance.
const FunctionBlockWidth = 3

// Parse parses a YAML catalog file.
func Parse(filePath string) (*models.Catalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseFromReader(file)
}

// ParseFromReader parses a catalog from an io.Reader.
func ParseFromReader(r io.Reader) (*models.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cat models.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}

	return &cat, nil
}

// Catalog is an indexed, immutable palette.
type Catalog struct {
	categories []models.CatalogCategory
	byType     map[string]models.ComponentDef
}

// New indexes m. Every tool needs a type, widths may not be negative and a
// type may appear only once.
func New(m *models.Catalog) (*Catalog, error) {
	c := &Catalog{byType: make(map[string]models.ComponentDef)}
	for _, cat := range m.Categories {
		tools := make([]models.ComponentDef, 0, len(cat.Tools))
		for _, def := range cat.Tools {
			def.Type = strings.TrimSpace(def.Type)
			if def.Type == "" {
				return nil, fmt.Errorf("category %q: tool without type", cat.Name)
			}
			if def.Width < 0 || def.Width > grid.MaxWidth {
				return nil, fmt.Errorf("tool %s: width %d out of range 1..%d", def.Type, def.Width, grid.MaxWidth)
			}
			if _, dup := c.byType[def.Type]; dup {
				return nil, fmt.Errorf("tool %s: listed twice", def.Type)
			}
			if def.Width == 0 {
				def.Width = 1
			}
			if def.Label == "" {
				def.Label = def.Type
			}
			c.byType[def.Type] = def
			tools = append(tools, def)
		}
		c.categories = append(c.categories, models.CatalogCategory{Name: cat.Name, Tools: tools})
	}
	if _, ok := c.byType[models.TypeFunctionBlock]; !ok {
		c.byType[models.TypeFunctionBlock] = models.ComponentDef{
			Type:  models.TypeFunctionBlock,
			Label: "Function Block",
			Width: FunctionBlockWidth,
		}
	}
	return c, nil
}

// Load reads and indexes a catalog file.
func Load(path string) (*Catalog, error) {
	m, err := Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(m)
}

// Default returns the built-in palette.
func Default() *Catalog {
	m, err := ParseFromReader(strings.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default: %v", err))
	}
	c, err := New(m)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default: %v", err))
	}
	return c
}

// Model returns the catalog in its serializable form.
func (c *Catalog) Model() *models.Catalog {
	out := &models.Catalog{Categories: make([]models.CatalogCategory, len(c.categories))}
	for i, cat := range c.categories {
		out.Categories[i] = models.CatalogCategory{Name: cat.Name, Tools: append([]models.ComponentDef(nil), cat.Tools...)}
	}
	return out
}

// Lookup returns the definition of a component type.
func (c *Catalog) Lookup(componentType string) (models.ComponentDef, bool) {
	def, ok := c.byType[componentType]
	return def, ok
}

// WidthOf returns the width of a component type, 1 for unknown types.
func (c *Catalog) WidthOf(componentType string) int {
	if def, ok := c.byType[componentType]; ok {
		return def.Width
	}
	return 1
}

// WithFunctionBlocks returns a copy of the catalog listing every
// instantiable function block POU as a FUNCTION_BLOCK tool.
func (c *Catalog) WithFunctionBlocks(pous []models.POU) *Catalog {
	out := &Catalog{categories: c.Model().Categories, byType: c.byType}

	var blocks []models.ComponentDef
	for _, pou := range pous {
		if !pou.Instantiable() {
			continue
		}
		blocks = append(blocks, models.ComponentDef{
			Type:     models.TypeFunctionBlock,
			Label:    pou.Name,
			Width:    FunctionBlockWidth,
			Defaults: map[string]any{"pouId": pou.ID},
		})
	}
	if len(blocks) == 0 {
		return out
	}

	for i := range out.categories {
		if out.categories[i].Name == FunctionBlockCategory {
			out.categories[i].Tools = append(out.categories[i].Tools, blocks...)
			return out
		}
	}
	out.categories = append(out.categories, models.CatalogCategory{Name: FunctionBlockCategory, Tools: blocks})
	return out
}

// Instantiate builds an unplaced component of the given type at position.
// Function blocks require pouID; it is ignored for other types.
func (c *Catalog) Instantiate(componentType string, position int, pouID string) (models.Component, error) {
	def, ok := c.byType[componentType]
	if !ok {
		return models.Component{}, fmt.Errorf("unknown component type: %s", componentType)
	}
	comp := models.Component{
		Type:      def.Type,
		Position:  position,
		Width:     def.Width,
		Variables: models.CloneVariables(def.Defaults),
	}
	if def.Type == models.TypeFunctionBlock {
		if pouID == "" {
			return models.Component{}, fmt.Errorf("function block requires a pouId")
		}
		if comp.Variables == nil {
			comp.Variables = make(map[string]any, 1)
		}
		comp.Variables["pouId"] = pouID
	}
	return comp, nil
}
