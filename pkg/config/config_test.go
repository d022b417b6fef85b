package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 90, cfg.ELA.Quality)
	assert.Equal(t, 20.0, cfg.ELA.Amplification)
	assert.Equal(t, 300, cfg.Render.DPI)
	assert.Contains(t, cfg.Rules.Keywords, "i love pdf")
	assert.NotContains(t, cfg.Rules.EditingTools, "modified")
	assert.False(t, cfg.Rules.FlagAnyEdit)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docforensics.yaml")
	content := `
ela:
  quality: 75
render:
  dpi: 150
  timeout: 5s
rules:
  editing_tools: [affinity]
  flag_any_edit: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("DOCFORENSICS_ELA_AMPLIFICATION", "15")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.ELA.Quality)
	assert.Equal(t, 15.0, cfg.ELA.Amplification)
	assert.Equal(t, 150, cfg.Render.DPI)
	assert.Equal(t, 5*time.Second, cfg.Render.Timeout)
	assert.Equal(t, []string{"affinity"}, cfg.Rules.EditingTools)
	assert.True(t, cfg.Rules.FlagAnyEdit)
	assert.Equal(t, Default().Rules.Keywords, cfg.Rules.Keywords)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quality too low", func(c *Config) { c.ELA.Quality = 0 }},
		{"quality too high", func(c *Config) { c.ELA.Quality = 101 }},
		{"zero amplification", func(c *Config) { c.ELA.Amplification = 0 }},
		{"bright threshold", func(c *Config) { c.ELA.BrightThreshold = 300 }},
		{"dpi", func(c *Config) { c.Render.DPI = 0 }},
		{"max file size", func(c *Config) { c.Input.MaxFileSize = 0 }},
		{"negative fetch timeout", func(c *Config) { c.Input.FetchTimeout = -time.Second }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_LogNames(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "warning", "Error"} {
		cfg := Default()
		cfg.Log.Level = level
		assert.NoError(t, cfg.Validate(), "level %q", level)
	}
	for _, format := range []string{"", "text", "JSON"} {
		cfg := Default()
		cfg.Log.Format = format
		assert.NoError(t, cfg.Validate(), "format %q", format)
	}
}
