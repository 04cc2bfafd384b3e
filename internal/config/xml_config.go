// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"LadderEditor"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Editing session configuration
	Editor EditorConfig `xml:"Editor"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing"`

	// Security configuration
	Security SecurityConfig `xml:"Security"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	ProjectsDirectory string `xml:"ProjectsDirectory"`
	JournalDirectory  string `xml:"JournalDirectory"`
	AutosaveDirectory string `xml:"AutosaveDirectory"`
	CatalogFile       string `xml:"CatalogFile"` // Empty uses the built-in palette
}

// EditorConfig contains editing session settings
type EditorConfig struct {
	HistoryLimit           int  `xml:"HistoryLimit"`
	MaxSessions            int  `xml:"MaxSessions"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	AutosaveDelaySeconds   int  `xml:"AutosaveDelaySeconds"`
	EnableJournal          bool `xml:"EnableJournal"`
	EnableAutosave         bool `xml:"EnableAutosave"`
}

// ProcessingConfig contains response and journal tuning
type ProcessingConfig struct {
	EnableCompression bool `xml:"EnableCompression"`
	CompressionLevel  int  `xml:"CompressionLevel"`
	JournalBatchSize  int  `xml:"JournalBatchSize"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowFileDeletion bool   `xml:"AllowFileDeletion"`
	AllowedFileTypes  string `xml:"AllowedFileTypes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	EnableMetrics           bool   `xml:"EnableMetrics"`
	VerboseStorageLogging   bool   `xml:"VerboseStorageLogging"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			ProjectsDirectory: "./data/projects",
			JournalDirectory:  "./data/journal",
			AutosaveDirectory: "./data/autosave",
		},
		Editor: EditorConfig{
			HistoryLimit:           50,
			MaxSessions:            10,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			AutosaveDelaySeconds:   5,
			EnableJournal:          true,
			EnableAutosave:         true,
		},
		Processing: ProcessingConfig{
			EnableCompression: true,
			CompressionLevel:  5,
			JournalBatchSize:  64,
		},
		Security: SecurityConfig{
			AllowFileDeletion: true,
			AllowedFileTypes:  ".json,.ll,.st,.lpk,.msgpack",
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			EnableMetrics:           true,
			VerboseStorageLogging:   false,
			WebSocketMaxMessageSize: 512,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyEditorDefaults()

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Ladder Editor Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEditorDefaults replaces non-positive limits with the defaults.
func (c *AppConfig) applyEditorDefaults() {
	d := DefaultConfig().Editor
	if c.Editor.HistoryLimit <= 0 {
		c.Editor.HistoryLimit = d.HistoryLimit
	}
	if c.Editor.MaxSessions <= 0 {
		c.Editor.MaxSessions = d.MaxSessions
	}
	if c.Editor.SessionTimeoutMinutes <= 0 {
		c.Editor.SessionTimeoutMinutes = d.SessionTimeoutMinutes
	}
	if c.Editor.CleanupIntervalMinutes <= 0 {
		c.Editor.CleanupIntervalMinutes = d.CleanupIntervalMinutes
	}
	if c.Editor.AutosaveDelaySeconds <= 0 {
		c.Editor.AutosaveDelaySeconds = d.AutosaveDelaySeconds
	}
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves every storage directory under the new root
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.ProjectsDirectory = filepath.Join(dataDir, "projects")
		c.Storage.JournalDirectory = filepath.Join(dataDir, "journal")
		c.Storage.AutosaveDirectory = filepath.Join(dataDir, "autosave")
	}

	if catalog := os.Getenv("LADDER_CATALOG"); catalog != "" {
		c.Storage.CatalogFile = catalog
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	resolve(&c.Storage.DataDirectory)
	resolve(&c.Storage.ProjectsDirectory)
	resolve(&c.Storage.JournalDirectory)
	resolve(&c.Storage.AutosaveDirectory)
	resolve(&c.Storage.CatalogFile)
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns the idle age after which sessions are closed.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Editor.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Editor.CleanupIntervalMinutes) * time.Minute
}

// AutosaveDelay returns the debounce delay for autosave snapshots.
func (c *AppConfig) AutosaveDelay() time.Duration {
	return time.Duration(c.Editor.AutosaveDelaySeconds) * time.Second
}

// FileTypes returns the lower-cased extensions from Security.AllowedFileTypes.
// An empty list allows every type the format registry can decode.
func (c *AppConfig) FileTypes() []string {
	var exts []string
	for _, ext := range strings.Split(c.Security.AllowedFileTypes, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ProjectsDirectory,
	}
	if c.Editor.EnableJournal {
		dirs = append(dirs, c.Storage.JournalDirectory)
	}
	if c.Editor.EnableAutosave {
		dirs = append(dirs, c.Storage.AutosaveDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
