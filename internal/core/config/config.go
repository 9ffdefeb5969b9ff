// Package config handles configuration loading and validation for marktimer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

// Config holds the application configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Timers      TimerDefaults     `yaml:"timers"`
	Server      ServerConfig      `yaml:"server"`
	TUI         TUIConfig         `yaml:"tui"`
	PresetFiles []string          `yaml:"preset_files"`
	Presets     map[string]Preset `yaml:"presets"`
	DataDir     string            `yaml:"-"` // set by caller, not from config file
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, file, sqlite, postgres
	Codec  string `yaml:"codec"`  // json or cbor
	// Path overrides the data directory for file and sqlite drivers.
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn"`

	MaxOpenConns   int           `yaml:"max_open_conns"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
	BusyTimeout    time.Duration `yaml:"busy_timeout"`
	RecoverCorrupt bool          `yaml:"recover_corrupt"`
}

// TimerDefaults are applied to timers and marks created without explicit
// settings.
type TimerDefaults struct {
	Precision      ptime.Precision `yaml:"precision"`
	AutoResetDelay time.Duration   `yaml:"auto_reset_delay"`
	BlinkCount     int             `yaml:"blink_count"`
	BlinkInterval  time.Duration   `yaml:"blink_interval"`
	Color          string          `yaml:"color"`
	// Sound turns the sound command on for new marks.
	Sound bool `yaml:"sound"`
	// SoundCommand runs through sh -c when a mark with sound triggers. It is
	// a Go template over .Timer, .TimerID, .Mark and .Time.
	SoundCommand string `yaml:"sound_command"`
}

// ServerConfig configures `marktimer serve`.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	Token             string        `yaml:"token"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// TUIConfig configures the dashboard and CLI colours.
type TUIConfig struct {
	Theme string `yaml:"theme"`
}

// Preset is a named timer definition used by `marktimer new --preset`.
type Preset struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Target      ptime.Time      `yaml:"target"`
	Direction   timer.Direction `yaml:"direction"`
	Precision   ptime.Precision `yaml:"precision"`
	AutoReset   bool            `yaml:"auto_reset"`
	Marks       []PresetMark    `yaml:"marks"`
}

// PresetMark is a mark inside a preset. Zero notification fields take the
// timer defaults.
type PresetMark struct {
	Name          string        `yaml:"name"`
	At            ptime.Time    `yaml:"at"`
	Color         string        `yaml:"color"`
	BlinkCount    int           `yaml:"blink_count"`
	BlinkInterval time.Duration `yaml:"blink_interval"`
	Sound         bool          `yaml:"sound"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	notify := timer.DefaultNotificationSettings()
	return Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			Codec:  "json",
		},
		Timers: TimerDefaults{
			Precision:      ptime.PrecisionHundredths,
			AutoResetDelay: time.Second,
			BlinkCount:     notify.BlinkCount,
			BlinkInterval:  notify.BlinkInterval,
			Color:          notify.Color,
		},
		Server: ServerConfig{
			Addr:              "127.0.0.1:7420",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		TUI:     TUIConfig{Theme: styles.DefaultTheme},
		Presets: map[string]Preset{},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided
// dataDir. Environment references like ${VAR} are expanded before parsing.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir

			presets, err := loadPresetFiles(filepath.Dir(configPath), cfg.PresetFiles)
			if err != nil {
				return nil, err
			}
			cfg.Presets = mergePresets(presets, cfg.Presets)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Storage.Codec == "" {
		c.Storage.Codec = defaults.Storage.Codec
	}
	if c.Timers.Precision == "" {
		c.Timers.Precision = defaults.Timers.Precision
	}
	if c.Timers.BlinkCount == 0 {
		c.Timers.BlinkCount = defaults.Timers.BlinkCount
	}
	if c.Timers.BlinkInterval == 0 {
		c.Timers.BlinkInterval = defaults.Timers.BlinkInterval
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = defaults.Server.ReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.Presets == nil {
		c.Presets = map[string]Preset{}
	}
}

// StorageDir is the directory file and sqlite backends write to.
func (c *Config) StorageDir() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return c.DataDir
}

// Notification returns the notification settings for new marks.
func (t TimerDefaults) Notification() timer.NotificationSettings {
	n := timer.DefaultNotificationSettings()
	n.BlinkCount = t.BlinkCount
	n.BlinkInterval = t.BlinkInterval
	n.Color = t.Color
	n.Sound = t.Sound
	return n
}

// NewMark returns a mark at the given time carrying the default
// notification settings.
func (t TimerDefaults) NewMark(name string, at ptime.Time) timer.Mark {
	m := timer.NewMark(name, at)
	m.Notification = t.Notification()
	return m
}

// BuildMarks converts the preset marks into timer marks, filling unset
// notification fields from d.
func (p Preset) BuildMarks(d TimerDefaults) []timer.Mark {
	marks := make([]timer.Mark, 0, len(p.Marks))
	for _, pm := range p.Marks {
		m := d.NewMark(pm.Name, pm.At)
		if pm.Color != "" {
			m.Notification.Color = pm.Color
		}
		if pm.BlinkCount > 0 {
			m.Notification.BlinkCount = pm.BlinkCount
		}
		if pm.BlinkInterval > 0 {
			m.Notification.BlinkInterval = pm.BlinkInterval
		}
		if pm.Sound {
			m.Notification.Sound = true
		}
		marks = append(marks, m)
	}
	return marks
}
