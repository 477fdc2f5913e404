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
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 1024, cfg.Engine.QueueSize)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, NewValidator().Validate(cfg))
}

func TestLoader_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9090"
  result_timeout: 45s
engine:
  workers: 8
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 45*time.Second, cfg.Server.ResultTimeout)
	assert.Equal(t, 8, cfg.Engine.Workers)
	// 未覆盖的字段保持默认
	assert.Equal(t, 1024, cfg.Engine.QueueSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("DF_SERVER_ADDRESS", ":7070")
	t.Setenv("DF_ENGINE_WORKERS", "16")
	t.Setenv("DF_SERVER_READ_TIMEOUT", "90s")
	t.Setenv("DF_SERVER_ENABLE_CORS", "false")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 16, cfg.Engine.Workers)
	assert.Equal(t, 90*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Server.EnableCORS)
}

func TestLoader_EnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  workers: 2\n"), 0o644))
	t.Setenv("DF_ENGINE_WORKERS", "32")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Engine.Workers)
}

func TestLoader_CmdOverridesBeatEnv(t *testing.T) {
	t.Setenv("DF_ENGINE_WORKERS", "32")

	cfg, err := NewLoader().WithCmdArgs(map[string]string{
		"engine.workers": "64",
		"server.address": ":6060",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Engine.Workers)
	assert.Equal(t, ":6060", cfg.Server.Address)
}

func TestLoader_CmdOverrides_UnknownPath(t *testing.T) {
	_, err := NewLoader().WithCmdArgs(map[string]string{
		"nope.nothing": "1",
	}).Load()
	assert.Error(t, err)
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()

	clone.Engine.Workers = 99
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 99, clone.Engine.Workers)
}
