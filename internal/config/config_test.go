package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ATLAS_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Atlas.APIURL)
	assert.Equal(t, "ws://localhost:8000", cfg.Atlas.WSURL)
	assert.Equal(t, 10*time.Second, cfg.Poll.Tasks)
	assert.Equal(t, 15*time.Second, cfg.Poll.Risks)
	assert.Equal(t, 30*time.Second, cfg.Poll.Notifications)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ATLAS_CONFIG_FILE", "")
	t.Setenv("ATLAS_API_URL", "https://atlas.example.com/")
	t.Setenv("TASK_POLL_INTERVAL", "5s")
	t.Setenv("RISK_POLL_INTERVAL", "20")
	t.Setenv("DEBUG", "yes")
	t.Setenv("FRONTEND_URL", "https://board.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://atlas.example.com", cfg.Atlas.APIURL)
	assert.Equal(t, "wss://atlas.example.com", cfg.Atlas.WSURL)
	assert.Equal(t, 5*time.Second, cfg.Poll.Tasks)
	assert.Equal(t, 20*time.Second, cfg.Poll.Risks)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://board.example.com"}, cfg.AllowedOrigins())
}

func TestLoad_YAMLOverlayThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
atlas:
  api_url: http://atlas.internal:8000
  project_id: proj-42
poll:
  tasks: 3s
`), 0o600))

	t.Setenv("ATLAS_CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "http://atlas.internal:8000", cfg.Atlas.APIURL)
	assert.Equal(t, "proj-42", cfg.Atlas.ProjectID)
	assert.Equal(t, 3*time.Second, cfg.Poll.Tasks)
	assert.Equal(t, 15*time.Second, cfg.Poll.Risks)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("ATLAS_CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Atlas.APIURL = "ftp://atlas"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Poll.Tasks = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Port = ""
	require.Error(t, cfg.Validate())
}
