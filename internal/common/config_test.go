package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Overlay.AutoFitStep)
	assert.Equal(t, 6.0, cfg.Overlay.MinFontSize)
	assert.Equal(t, "#FFFFFF", cfg.Overlay.Background)
}

func TestLoadFromFilesLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfeditd.toml")
	content := `
[server]
port = 9090

[overlay]
min_font_size = 8.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8.0, cfg.Overlay.MinFontSize)
	// Untouched values keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 0.5, cfg.Overlay.AutoFitStep)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.toml")
	second := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(first, []byte("[server]\nport = 7000\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("[server]\nport = 7001\n"), 0o644))

	cfg, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestEnvOverridesConfig(t *testing.T) {
	t.Setenv("PDFEDIT_HOST", "0.0.0.0")
	t.Setenv("PDFEDIT_PORT", "9999")
	t.Setenv("PDFEDIT_LOG_LEVEL", "debug")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Overlay.Background = "white"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestDocumentIDIsStable(t *testing.T) {
	a := DocumentID([]byte("hello"))
	b := DocumentID([]byte("hello"))
	c := DocumentID([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
