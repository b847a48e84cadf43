package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "https://{creator}.itch.io", config.Itch.BaseURL)
	assert.Equal(t, 3, config.Download.ConcurrentDownloads)
	assert.Equal(t, 30*time.Second, config.HTTP.Timeout)
	assert.Equal(t, "{creator}_itch.zip", config.Output.ArchiveNamePattern)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ITCHARCHIVE_BASE_URL", "http://127.0.0.1:9999/{creator}")
	t.Setenv("ITCHARCHIVE_REQUEST_TIMEOUT", "5s")
	t.Setenv("ITCHARCHIVE_REQUESTS_PER_SECOND", "0")
	t.Setenv("ITCHARCHIVE_OUTPUT_DIR", "/tmp/itch-test")
	t.Setenv("ITCHARCHIVE_CONCURRENT_DOWNLOADS", "5")
	t.Setenv("ITCHARCHIVE_ADDR", ":9090")
	t.Setenv("ITCHARCHIVE_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "http://127.0.0.1:9999/{creator}", config.Itch.BaseURL)
	assert.Equal(t, 5*time.Second, config.HTTP.Timeout)
	assert.Equal(t, 0.0, config.HTTP.RequestsPerSecond)
	assert.Equal(t, "/tmp/itch-test", config.Output.Directory)
	assert.Equal(t, 5, config.Download.ConcurrentDownloads)
	assert.Equal(t, ":9090", config.Server.Address)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvInvalidTimeout(t *testing.T) {
	t.Setenv("ITCHARCHIVE_REQUEST_TIMEOUT", "soon")

	err := DefaultConfig().LoadFromEnv()
	assert.ErrorContains(t, err, "ITCHARCHIVE_REQUEST_TIMEOUT")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
itch:
  max_pages: 3
http:
  timeout: 10s
download:
  concurrent_downloads: 1
  skip_screenshots: true
server:
  allowed_origins: ["http://localhost:3000"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, 3, config.Itch.MaxPages)
	assert.Equal(t, 10*time.Second, config.HTTP.Timeout)
	assert.Equal(t, 1, config.Download.ConcurrentDownloads)
	assert.True(t, config.Download.SkipScreenshots)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	// untouched keys keep their defaults
	assert.Equal(t, "https://{creator}.itch.io", config.Itch.BaseURL)
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	assert.ErrorContains(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")), "failed to read")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("itch: [unclosed"), 0o644))
	assert.ErrorContains(t, config.LoadFromFile(bad), "failed to parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "base url without placeholder",
			mutate:  func(c *Config) { c.Itch.BaseURL = "https://itch.io" },
			wantErr: "must contain {creator}",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.HTTP.Timeout = 0 },
			wantErr: "request timeout must be positive",
		},
		{
			name:    "too many workers",
			mutate:  func(c *Config) { c.Download.ConcurrentDownloads = 32 },
			wantErr: "should not exceed 16",
		},
		{
			name:    "archive pattern",
			mutate:  func(c *Config) { c.Output.ArchiveNamePattern = "{creator}.tar" },
			wantErr: "must end in .zip",
		},
		{
			name:    "log level",
			mutate:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: "invalid log level",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *Config) { c.HTTP.BurstSize = 0 },
			wantErr: "burst size must be positive",
		},
		{
			name:   "rate limit disabled without burst",
			mutate: func(c *Config) { c.HTTP.RequestsPerSecond = 0; c.HTTP.BurstSize = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"output":               "/srv/archives",
		"concurrent-downloads": 6,
		"timeout":              15 * time.Second,
		"addr":                 "127.0.0.1:8000",
		"skip-screenshots":     true,
		"log-level":            "warn",
		"unknown":              "ignored",
	})

	assert.Equal(t, "/srv/archives", config.Output.Directory)
	assert.Equal(t, 6, config.Download.ConcurrentDownloads)
	assert.Equal(t, 15*time.Second, config.HTTP.Timeout)
	assert.Equal(t, "127.0.0.1:8000", config.Server.Address)
	assert.True(t, config.Download.SkipScreenshots)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  concurrent_downloads: 2\nlogging:\n  level: warn\n"), 0o644))
	t.Setenv("ITCHARCHIVE_CONCURRENT_DOWNLOADS", "4")

	config, err := Load(path, map[string]interface{}{"log-level": "error"})
	require.NoError(t, err)

	assert.Equal(t, 4, config.Download.ConcurrentDownloads, "env overrides file")
	assert.Equal(t, "error", config.Logging.Level, "flags override file")
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("", map[string]interface{}{"log-level": "loud"})
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestTemplates(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "https://some-dev.itch.io", config.CreatorURL("some-dev"))
	assert.Equal(t, "some-dev_itch.zip", config.ArchiveName("some-dev"))
}
