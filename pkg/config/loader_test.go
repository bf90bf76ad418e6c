package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:5000", cfg.Listener.Address)
	assert.Equal(t, 5, cfg.Listener.MaxSessions)
	assert.Equal(t, 60*time.Second, cfg.Listener.IdleTimeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Game.CommandInterval.Std())
	assert.Equal(t, 8<<20, cfg.Game.MaxFrameBytes)
	assert.Equal(t, 1, cfg.Game.TrainIterations)
	assert.Equal(t, "random", cfg.Brain.Strategy)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.Address)
	assert.Equal(t, 3, cfg.Watchdog.FailureThreshold)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
logging:
  format: json
  level: debug
  components:
    session: warn
listener:
  address: 0.0.0.0:7777
  max_sessions: 2
  idle_timeout: 90s
game:
  command_interval: 250ms
  fetch_frames: true
  train_iterations: 10
brain:
  strategy: reflex
  params:
    shoot_bias: 0.9
recorder:
  enabled: true
  path: /tmp/episodes.db
unity:
  player:
    name: bot
    color: "#00ff00"
`))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "warn", cfg.Logging.Components["session"])
	assert.Equal(t, "0.0.0.0:7777", cfg.Listener.Address)
	assert.Equal(t, 90*time.Second, cfg.Listener.IdleTimeout.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Game.CommandInterval.Std())
	assert.True(t, cfg.Game.FetchFrames)
	assert.Equal(t, 10, cfg.Game.TrainIterations)
	assert.Equal(t, "reflex", cfg.Brain.Strategy)
	assert.Equal(t, 0.9, cfg.Brain.Params["shoot_bias"])
	assert.True(t, cfg.Recorder.Enabled)
	assert.Equal(t, "#00ff00", cfg.Unity.Player.Color)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "game:\n  command_interval: fast\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad listener address",
			mutate:  func(c *Config) { c.Listener.Address = "nohost" },
			wantErr: "listener.address",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Listener.Address = "127.0.0.1:99999" },
			wantErr: "out of range",
		},
		{
			name:    "max sessions",
			mutate:  func(c *Config) { c.Listener.MaxSessions = -1 },
			wantErr: "max_sessions",
		},
		{
			name:    "command interval too small",
			mutate:  func(c *Config) { c.Game.CommandInterval = Duration(time.Millisecond) },
			wantErr: "command_interval",
		},
		{
			name:    "train iterations",
			mutate:  func(c *Config) { c.Game.TrainIterations = -5 },
			wantErr: "train_iterations",
		},
		{
			name:    "bad player color",
			mutate:  func(c *Config) { c.Unity.Player.Color = "green" },
			wantErr: "unity.player.color",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListenerPort(t *testing.T) {
	cfg := Default()
	port, err := cfg.ListenerPort()
	require.NoError(t, err)
	assert.Equal(t, 5000, port)
}

func TestSetListenerPort(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetListenerPort(6001))
	assert.Equal(t, "127.0.0.1:6001", cfg.Listener.Address)

	port, err := cfg.ListenerPort()
	require.NoError(t, err)
	assert.Equal(t, 6001, port)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := Default()
	cfg.Brain.Strategy = "visual"
	cfg.Listener.Address = "127.0.0.1:6000"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "visual", loaded.Brain.Strategy)
	assert.Equal(t, "127.0.0.1:6000", loaded.Listener.Address)
	assert.Equal(t, cfg.Game.CommandInterval, loaded.Game.CommandInterval)
}

func TestWatchdogPerTargetOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
watchdog:
  check_interval: 20s
  failure_threshold: 5
  targets:
    recorder:
      check_interval: 1m
      check_timeout: 2s
`))
	require.NoError(t, err)

	listener := cfg.Watchdog.Runner("listener")
	assert.Equal(t, 20*time.Second, listener.CheckInterval.Std())
	assert.Equal(t, 5, listener.FailureThreshold)

	recorder := cfg.Watchdog.Runner("recorder")
	assert.Equal(t, time.Minute, recorder.CheckInterval.Std())
	assert.Equal(t, 2*time.Second, recorder.CheckTimeout.Std())
	assert.Equal(t, 5, recorder.FailureThreshold)
}
