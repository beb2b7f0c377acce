package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Browser.PoolSize)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, time.Second, cfg.Browser.RequestDelay)
	assert.Equal(t, 100, cfg.Agent.MaxPages)
	assert.Equal(t, 2, cfg.Agent.MaxCorrectionAttempts)
	assert.Equal(t, 0.3, cfg.Agent.MinConfidence)
	assert.Equal(t, "csv", cfg.Output.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arca.toml")
	content := `environment = "production"

[browser]
headless = false
pool_size = 4

[agent]
max_pages = 10
max_correction_attempts = 1

[output]
file = "./out/records.json"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 4, cfg.Browser.PoolSize)
	assert.Equal(t, 10, cfg.Agent.MaxPages)
	assert.Equal(t, 1, cfg.Agent.MaxCorrectionAttempts)
	assert.Equal(t, "json", cfg.Output.Format)
	// Untouched settings keep their defaults.
	assert.Equal(t, 0.3, cfg.Agent.MinConfidence)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFilesLaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte("[agent]\nmax_pages = 10\nmax_results = 500\n"), 0644))
	require.NoError(t, os.WriteFile(local, []byte("[agent]\nmax_pages = 3\n"), 0644))

	cfg, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Agent.MaxPages)
	assert.Equal(t, 500, cfg.Agent.MaxResults)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARCA_ENV", "production")
	t.Setenv("ARCA_LOG_LEVEL", "debug")
	t.Setenv("ARCA_BROWSER_POOL_SIZE", "6")
	t.Setenv("ARCA_AGENT_MAX_PAGES", "7")
	t.Setenv("ARCA_OUTPUT_FORMAT", "json")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 6, cfg.Browser.PoolSize)
	assert.Equal(t, 7, cfg.Agent.MaxPages)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pool size zero", func(c *Config) { c.Browser.PoolSize = 0 }},
		{"pool size too large", func(c *Config) { c.Browser.PoolSize = 50 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }},
		{"max pages zero", func(c *Config) { c.Agent.MaxPages = 0 }},
		{"confidence above one", func(c *Config) { c.Agent.MinConfidence = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
