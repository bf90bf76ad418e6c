package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Default reflects the original controller's invocation defaults: a local
// listener, a half-second command cadence and a single training iteration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Listener.Address == "" {
		c.Listener.Address = "127.0.0.1:5000"
	}
	if c.Listener.MaxSessions == 0 {
		c.Listener.MaxSessions = 5
	}
	if c.Listener.IdleTimeout == 0 {
		c.Listener.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Game.CommandInterval == 0 {
		c.Game.CommandInterval = Duration(500 * time.Millisecond)
	}
	if c.Game.MaxFrameBytes == 0 {
		c.Game.MaxFrameBytes = 8 << 20
	}
	if c.Game.FrameSavePath == "" {
		c.Game.FrameSavePath = "latest_frame.png"
	}
	if c.Game.TrainIterations == 0 {
		c.Game.TrainIterations = 1
	}
	if c.Brain.Strategy == "" {
		c.Brain.Strategy = "random"
	}
	if c.Recorder.Path == "" {
		c.Recorder.Path = "data/ailink.db"
	}
	if c.API.Address == "" {
		c.API.Address = "127.0.0.1:8080"
	}
	if c.Exporter.Address == "" {
		c.Exporter.Address = ":9090"
	}
	if c.Watchdog.CheckInterval == 0 {
		c.Watchdog.CheckInterval = Duration(10 * time.Second)
	}
	if c.Watchdog.FailureThreshold == 0 {
		c.Watchdog.FailureThreshold = 3
	}
}

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (c *Config) Validate() error {
	if _, err := c.ListenerPort(); err != nil {
		return fmt.Errorf("listener.address: %w", err)
	}
	if c.Listener.MaxSessions < 1 {
		return fmt.Errorf("listener.max_sessions must be at least 1, got %d", c.Listener.MaxSessions)
	}
	if c.Game.CommandInterval.Std() < 10*time.Millisecond {
		return fmt.Errorf("game.command_interval must be at least 10ms, got %s", c.Game.CommandInterval.Std())
	}
	if c.Game.TrainIterations < 1 {
		return fmt.Errorf("game.train_iterations must be at least 1, got %d", c.Game.TrainIterations)
	}
	if c.Recorder.Enabled && c.Recorder.Path == "" {
		return fmt.Errorf("recorder.path is required when recorder is enabled")
	}
	if c.Unity.Player.Color != "" && !colorRe.MatchString(c.Unity.Player.Color) {
		return fmt.Errorf("unity.player.color must look like #RRGGBB, got %q", c.Unity.Player.Color)
	}
	return nil
}

// ListenerPort returns the TCP port from the listener address.
func (c *Config) ListenerPort() (int, error) {
	_, portStr, err := net.SplitHostPort(c.Listener.Address)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// SetListenerPort keeps the host part and swaps the port, used by the -port
// flag which mirrors the original controller's positional argument.
func (c *Config) SetListenerPort(port int) error {
	host, _, err := net.SplitHostPort(c.Listener.Address)
	if err != nil {
		return err
	}
	c.Listener.Address = net.JoinHostPort(host, strconv.Itoa(port))
	return nil
}
