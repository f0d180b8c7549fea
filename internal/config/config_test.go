package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultLocation, cfg.Location)
	assert.Equal(t, DefaultSelector, cfg.CountSelector)
	assert.Equal(t, FetchModeColly, cfg.FetchMode)
	assert.Equal(t, 1, cfg.FetchAttempts)
	assert.Zero(t, cfg.FetchTimeout)
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, 30*24*time.Hour, cfg.HistoryRetention)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
port: "9000"
base_url: "http://jobs.example.com/"
location: "in-london"
fetch_timeout: 5s
fetch_attempts: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("SITE_LOCATION", "in-leeds")
	t.Setenv("FETCH_MODE", "polite")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://jobs.example.com", cfg.BaseURL)
	assert.Equal(t, "in-leeds", cfg.Location)
	assert.Equal(t, FetchModePolite, cfg.FetchMode)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2, cfg.FetchAttempts)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad fetch mode", key: "FETCH_MODE", val: "telepathy"},
		{name: "bad timeout", key: "FETCH_TIMEOUT", val: "soon"},
		{name: "bad attempts", key: "FETCH_ATTEMPTS", val: "many"},
		{name: "bad base url", key: "SITE_BASE_URL", val: "ftp://jobs.example.com"},
		{name: "bad log level", key: "LOG_LEVEL", val: "loud"},
		{name: "bad retention", key: "HISTORY_RETENTION", val: "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
