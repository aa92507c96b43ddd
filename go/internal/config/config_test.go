package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 30*time.Second, cfg.Game.Rules.TurnTimeout)
	assert.Equal(t, 5, cfg.Game.Rules.TargetScore)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
server:
  port: "9090"
game:
  turn_timeout: 20s
  block_window: 5s
  target_score: 3
  round_break: 1s
  workers: 2
rooms:
  expiry: 10m
outbox:
  batch_size: 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Game.Rules.TurnTimeout)
	assert.Equal(t, 5*time.Second, cfg.Game.Rules.BlockWindow)
	assert.Equal(t, 15*time.Second, cfg.Game.Rules.ForcedDrawWindow)
	assert.Equal(t, 3, cfg.Game.Rules.TargetScore)
	assert.Equal(t, time.Second, cfg.Game.RoundBreak)
	assert.Equal(t, 2, cfg.Game.NumWorkers)
	assert.Equal(t, 10*time.Minute, cfg.Rooms.Expiry)
	assert.Equal(t, int32(50), cfg.Outbox.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("ALLOWED_ORIGIN", "https://a.example,https://b.example")
	t.Setenv("TURN_TIMEOUT", "45s")
	t.Setenv("NUM_WORKERS", "not-a-number")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load(writeFile(t, "server:\n  port: \"9090\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.Game.Rules.TurnTimeout)
	assert.Equal(t, 4, cfg.Game.NumWorkers)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "game:\n  target_score: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "game: [not, a, map]\n"))
	assert.Error(t, err)
}
