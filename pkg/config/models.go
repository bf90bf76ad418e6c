package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "500ms" or "1m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Logging  Logging  `yaml:"logging"`
	Listener Listener `yaml:"listener"`
	Game     Game     `yaml:"game"`
	Brain    Brain    `yaml:"brain"`
	Recorder Recorder `yaml:"recorder,omitempty"`
	API      API      `yaml:"api,omitempty"`
	Exporter Exporter `yaml:"exporter,omitempty"`
	Watchdog Watchdog `yaml:"watchdog,omitempty"`
	Unity    Unity    `yaml:"unity,omitempty"`
}

type Logging struct {
	Format     string            `yaml:"format"`
	Level      string            `yaml:"level"`
	Components map[string]string `yaml:"components,omitempty"`
}

type Listener struct {
	Address     string   `yaml:"address"`
	MaxSessions int      `yaml:"max_sessions"`
	ReadTimeout Duration `yaml:"read_timeout,omitempty"`
	IdleTimeout Duration `yaml:"idle_timeout,omitempty"`
}

type Game struct {
	CommandInterval Duration `yaml:"command_interval"`
	FetchFrames     bool     `yaml:"fetch_frames"`
	SaveLatestFrame bool     `yaml:"save_latest_frame,omitempty"`
	FrameSavePath   string   `yaml:"frame_save_path,omitempty"`
	MaxFrameBytes   int      `yaml:"max_frame_bytes,omitempty"`
	TrainIterations int      `yaml:"train_iterations,omitempty"`
}

type Brain struct {
	Strategy string             `yaml:"strategy"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

type Recorder struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type API struct {
	Address string `yaml:"address,omitempty"`
}

type Exporter struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

type Watchdog struct {
	CheckInterval    Duration `yaml:"check_interval,omitempty"`
	CheckTimeout     Duration `yaml:"check_timeout,omitempty"`
	FailureThreshold int      `yaml:"failure_threshold,omitempty"`

	// Targets overrides the global settings per target name
	// ("listener", "recorder"). Zero fields fall back to the globals.
	Targets map[string]WatchdogTarget `yaml:"targets,omitempty"`
}

type WatchdogTarget struct {
	CheckInterval    Duration `yaml:"check_interval,omitempty"`
	CheckTimeout     Duration `yaml:"check_timeout,omitempty"`
	FailureThreshold int      `yaml:"failure_threshold,omitempty"`
}

// Runner resolves the effective settings for one watchdog target.
func (w Watchdog) Runner(name string) WatchdogTarget {
	target := w.Targets[name]
	if target.CheckInterval == 0 {
		target.CheckInterval = w.CheckInterval
	}
	if target.CheckTimeout == 0 {
		target.CheckTimeout = w.CheckTimeout
	}
	if target.FailureThreshold == 0 {
		target.FailureThreshold = w.FailureThreshold
	}
	return target
}

// Unity describes the game-side game_config.json the daemon can keep in
// sync so the game finds the controller port.
type Unity struct {
	ConfigPath string          `yaml:"config_path,omitempty"`
	Player     UnityPlayer     `yaml:"player,omitempty"`
	Parameters UnityParameters `yaml:"parameters,omitempty"`
}

type UnityPlayer struct {
	Name  string `yaml:"name,omitempty"`
	Color string `yaml:"color,omitempty"`
}

type UnityParameters struct {
	TimeScale             float64 `yaml:"time_scale,omitempty"`
	AITimeBetweenStates   float64 `yaml:"ai_time_between_states,omitempty"`
	TrainIterations       int     `yaml:"train_iterations,omitempty"`
	ScreenWidth           int     `yaml:"screen_width,omitempty"`
	ScreenHeight          int     `yaml:"screen_height,omitempty"`
	ScreenResolutionScale float64 `yaml:"screen_resolution_scale,omitempty"`
	UseParallaxScrolling  bool    `yaml:"use_parallax_scrolling,omitempty"`
	AutoLoadLevel         string  `yaml:"auto_load_level,omitempty"`
}
