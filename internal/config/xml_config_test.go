package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LadderEditor.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Editor.HistoryLimit)
	assert.Equal(t, 10, cfg.Editor.MaxSessions)
	assert.True(t, cfg.Editor.EnableJournal)
	assert.True(t, cfg.Editor.EnableAutosave)
	assert.Equal(t, filepath.Join(dir, "data", "projects"), cfg.Storage.ProjectsDirectory)
	assert.Empty(t, cfg.Storage.CatalogFile)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LadderEditor.config")
	content := `<?xml version="1.0" encoding="UTF-8"?>
<LadderEditor>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Storage>
    <DataDirectory>/srv/ladder</DataDirectory>
    <ProjectsDirectory>projects</ProjectsDirectory>
    <CatalogFile>palette.yaml</CatalogFile>
  </Storage>
  <Editor>
    <HistoryLimit>20</HistoryLimit>
    <MaxSessions>0</MaxSessions>
    <AutosaveDelaySeconds>2</AutosaveDelaySeconds>
    <EnableJournal>false</EnableJournal>
  </Editor>
</LadderEditor>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, "/srv/ladder", cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dir, "projects"), cfg.Storage.ProjectsDirectory)
	assert.Equal(t, filepath.Join(dir, "palette.yaml"), cfg.Storage.CatalogFile)
	assert.Equal(t, 20, cfg.Editor.HistoryLimit)
	assert.Equal(t, 10, cfg.Editor.MaxSessions, "non-positive limits fall back to defaults")
	assert.Equal(t, 2*time.Second, cfg.AutosaveDelay())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval())
	assert.False(t, cfg.Editor.EnableJournal)
	assert.True(t, cfg.Editor.EnableAutosave, "omitted elements keep defaults")
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LadderEditor.config")
	require.NoError(t, os.WriteFile(path, []byte("<LadderEditor><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "elsewhere")
	t.Setenv("PORT", "9100")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LADDER_CATALOG", "/etc/ladder/catalog.yaml")

	cfg, err := LoadConfig(filepath.Join(dir, "LadderEditor.config"))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "journal"), cfg.Storage.JournalDirectory)
	assert.Equal(t, filepath.Join(dataDir, "autosave"), cfg.Storage.AutosaveDirectory)
	assert.Equal(t, "/etc/ladder/catalog.yaml", cfg.Storage.CatalogFile)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LadderEditor.config")
	cfg := DefaultConfig()
	cfg.Editor.HistoryLimit = 75
	cfg.Security.AllowFileDeletion = false
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 75, loaded.Editor.HistoryLimit)
	assert.False(t, loaded.Security.AllowFileDeletion)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(dir, "data")
	cfg.Storage.ProjectsDirectory = filepath.Join(dir, "data", "projects")
	cfg.Storage.JournalDirectory = filepath.Join(dir, "data", "journal")
	cfg.Storage.AutosaveDirectory = filepath.Join(dir, "data", "autosave")
	cfg.Editor.EnableAutosave = false

	require.NoError(t, cfg.EnsureDirectories())

	for _, d := range []string{"data", "data/projects", "data/journal"} {
		_, err := os.Stat(filepath.Join(dir, d))
		assert.NoError(t, err, d)
	}
	_, err := os.Stat(cfg.Storage.AutosaveDirectory)
	assert.True(t, os.IsNotExist(err), "autosave dir is only created when enabled")
}

func TestFileTypes(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{".json", ".ll", ".st", ".lpk", ".msgpack"}, cfg.FileTypes())

	cfg.Security.AllowedFileTypes = " JSON, .LL ,,"
	assert.Equal(t, []string{".json", ".ll"}, cfg.FileTypes())

	cfg.Security.AllowedFileTypes = ""
	assert.Empty(t, cfg.FileTypes())
}
