package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		APIURL:         "http://localhost:8000",
		Env:            "development",
		SessionBackend: SessionBackendMemory,
		OutputFormat:   "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid memory config", func(*Config) {}, false},
		{"missing api url", func(c *Config) { c.APIURL = "" }, true},
		{"relative api url", func(c *Config) { c.APIURL = "localhost:8000" }, true},
		{"unsupported scheme", func(c *Config) { c.APIURL = "ftp://example.com" }, true},
		{"negative timeout", func(c *Config) { c.APITimeout = -1 }, true},
		{"unknown backend", func(c *Config) { c.SessionBackend = "cookie" }, true},
		{"file backend without path", func(c *Config) { c.SessionBackend = SessionBackendFile }, true},
		{"file backend with path", func(c *Config) {
			c.SessionBackend = SessionBackendFile
			c.SessionFile = "/tmp/session.json"
		}, false},
		{"redis backend without url", func(c *Config) { c.SessionBackend = SessionBackendRedis }, true},
		{"sql backend without dsn", func(c *Config) { c.SessionBackend = SessionBackendSQL }, true},
		{"sql backend with dsn", func(c *Config) {
			c.SessionBackend = SessionBackendSQL
			c.SessionDSN = "session.db"
		}, false},
		{"unknown output", func(c *Config) { c.OutputFormat = "xml" }, true},
		{"tracing with bad exporter", func(c *Config) {
			c.TracingEnabled = true
			c.TracingExporter = "jaeger"
		}, true},
		{"production over http still valid", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("API_URL", "  https://api.example.com/  ")
	t.Setenv("SESSION_BACKEND", "FILE")
	t.Setenv("SESSION_FILE", filepath.Join(dir, "token.json"))
	t.Setenv("OUTPUT_FORMAT", "YAML")
	t.Setenv("API_TIMEOUT", "5s")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", c.APIURL)
	assert.Equal(t, SessionBackendFile, c.SessionBackend)
	assert.Equal(t, filepath.Join(dir, "token.json"), c.SessionFile)
	assert.Equal(t, "yaml", c.OutputFormat)
	assert.Equal(t, "5s", c.APITimeout.String())
	assert.Equal(t, "default", c.SessionProfile)
}

func TestLoadConfig_DefaultSessionFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_BACKEND", "file")
	t.Setenv("SESSION_FILE", "")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionFile(), c.SessionFile)
}
