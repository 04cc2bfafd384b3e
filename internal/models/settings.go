package models

// Settings keys understood by the editor. Any other key is carried through
// untouched (UI-only fields such as panel layout).
const (
	SettingName                = "name"
	SettingDescription         = "description"
	SettingAuthor              = "author"
	SettingGridSize            = "gridSize"
	SettingShowGrid            = "showGrid"
	SettingShowAddresses       = "showAddresses"
	SettingShowCrossReferences = "showCrossReferences"
	SettingAutoSave            = "autoSave"
)

// DefaultGridSize is the cell size in pixels.
const DefaultGridSize = 40

// Settings is the project settings record.
type Settings map[string]any

// DefaultSettings returns the settings of a new project.
func DefaultSettings(name string) Settings {
	return Settings{
		SettingName:          name,
		SettingDescription:   "",
		SettingAuthor:        "",
		SettingGridSize:      DefaultGridSize,
		SettingShowGrid:      true,
		SettingShowAddresses: true,
		SettingAutoSave:      false,
	}
}

// Clone returns a shallow copy of the record.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new record holding s overlaid with incoming.
// Incoming values win on key conflict.
func (s Settings) Merge(incoming Settings) Settings {
	out := make(Settings, len(s)+len(incoming))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// String returns a string value or "".
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns a boolean value or false.
func (s Settings) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Int returns an integer value. JSON and msgpack decode numbers into
// different Go types, so every numeric kind is accepted.
func (s Settings) Int(key string) (int, bool) {
	return ToInt(s[key])
}

// Name returns the project display name carried by the settings.
func (s Settings) Name() string { return s.String(SettingName) }

// Author returns the author field.
func (s Settings) Author() string { return s.String(SettingAuthor) }

// Description returns the description field.
func (s Settings) Description() string { return s.String(SettingDescription) }

// AutoSave reports whether autosave is enabled.
func (s Settings) AutoSave() bool { return s.Bool(SettingAutoSave) }

// GridSize returns the cell size in pixels.
func (s Settings) GridSize() int {
	if n, ok := s.Int(SettingGridSize); ok && n > 0 {
		return n
	}
	return DefaultGridSize
}

// ToInt converts any numeric value to int.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// ToFloat converts any numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := ToInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
