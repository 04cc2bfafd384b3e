package models

// Catalog is the palette of placeable component types.
// The YAML format groups tools into named categories.
type Catalog struct {
	Categories []CatalogCategory `json:"categories" yaml:"categories"`
}

// CatalogCategory is a named group of tools.
type CatalogCategory struct {
	Name  string         `json:"name" yaml:"name"`
	Tools []ComponentDef `json:"tools" yaml:"tools"`
}

// ComponentDef describes one placeable component type.
type ComponentDef struct {
	Type     string         `json:"type" yaml:"type"`
	Label    string         `json:"label" yaml:"label"`
	Width    int            `json:"width,omitempty" yaml:"width,omitempty"`         // Grid units, 1 when unset
	Defaults map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"` // Initial variables
}
