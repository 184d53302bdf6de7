package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 60*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Server.MCP)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  url: "https://rules.example.com/ "
  timeout: 5s
server:
  addr: ":9090"
log:
  level: debug
`), 0o600))
	t.Setenv("CONSOLE_LOG_FORMAT", "console")

	cfg, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://rules.example.com", cfg.Backend.URL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Backend.URL = "not a url"
	cfg.Backend.Timeout = time.Second
	assert.Error(t, cfg.Validate())

	cfg.Backend.URL = "http://localhost:8000"
	assert.NoError(t, cfg.Validate())

	cfg.TLS.Enable = true
	assert.Error(t, cfg.Validate())

	cfg.TLS.Enable = false
	cfg.Backend.OAuth2.TokenURL = "https://idp/token"
	assert.Error(t, cfg.Validate())
}
