package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sampo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderDefaultsWhenNoFile(t *testing.T) {
	loader := NewLoader().WithSearchPaths(nil)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoaderReadsConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
log_level: debug
output:
  format: json
  color: false
serve:
  port: 9999
`)
	loader := NewLoader().WithConfigFile(path)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, 9999, cfg.Serve.Port)

	// Untouched fields keep their defaults.
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "./exports", cfg.Export.Directory)
}

func TestLoaderMissingPinnedFile(t *testing.T) {
	loader := NewLoader().WithConfigFile("/does/not/exist.yaml")

	_, err := loader.Load()
	require.Error(t, err)

	cerr, ok := err.(ConfigError)
	require.True(t, ok)
	assert.Equal(t, "not_found", cerr.Type)
}

func TestLoaderRequireConfigFile(t *testing.T) {
	loader := NewLoader().WithSearchPaths(nil).RequireConfigFile()

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration file found")
}

func TestLoaderRejectsBadYAML(t *testing.T) {
	path := writeConfigFile(t, "log_level: [not: valid")
	loader := NewLoader().WithConfigFile(path)

	_, err := loader.Load()
	require.Error(t, err)

	cerr, ok := err.(ConfigError)
	require.True(t, ok)
	assert.Equal(t, "parse_error", cerr.Type)
}

func TestLoaderEnvOverridesBeatFile(t *testing.T) {
	path := writeConfigFile(t, "log_level: debug\n")
	t.Setenv("SAMPO_LOG_LEVEL", "warn")
	t.Setenv("SAMPO_SERVE_PORT", "8111")
	t.Setenv("SAMPO_EXPORT_FORMATS", "json, csv")
	t.Setenv("SAMPO_OUTPUT_COLOR", "off")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 8111, cfg.Serve.Port)
	assert.Equal(t, []string{"json", "csv"}, cfg.Export.Formats)
	assert.False(t, cfg.Output.Color)
}

func TestLoaderInvalidEnvValue(t *testing.T) {
	t.Setenv("SAMPO_SERVE_PORT", "eighty")

	_, err := NewLoader().WithSearchPaths(nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAMPO_SERVE_PORT")
}

func TestLoaderValidatesLoadedConfig(t *testing.T) {
	path := writeConfigFile(t, "log_level: shouting\n")

	_, err := NewLoader().WithConfigFile(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestSaveConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "sampo.yaml")

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	loader := NewLoader()
	require.NoError(t, loader.SaveConfig(cfg, path))

	loaded, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.LogLevel)
}
