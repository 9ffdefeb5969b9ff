package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/core/validate"
	"github.com/hay-kot/marktimer/pkg/tmpl"
)

// Storage drivers and codecs accepted in the storage section.
var (
	StorageDrivers = []string{"memory", "file", "sqlite", "postgres"}
	StorageCodecs  = []string{"json", "cbor"}
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	return criterio.ValidateStruct(
		c.validateStorage(),
		c.validateTimers(),
		c.validateServer(),
		criterio.Run("tui.theme", c.TUI.Theme, validate.OneOf(styles.ThemeNames()...)),
		c.validatePresets(),
	)
}

func (c *Config) validateStorage() error {
	var errs criterio.FieldErrorsBuilder
	s := c.Storage

	if err := validate.OneOf(StorageDrivers...)(s.Driver); err != nil {
		errs = errs.Append("storage.driver", err)
	}
	if err := validate.OneOf(StorageCodecs...)(s.Codec); err != nil {
		errs = errs.Append("storage.codec", err)
	}
	if s.Driver == "postgres" && s.DSN == "" {
		errs = errs.Append("storage.dsn", fmt.Errorf("required for the postgres driver"))
	}
	if s.MaxOpenConns < 0 {
		errs = errs.Append("storage.max_open_conns", fmt.Errorf("must not be negative"))
	}
	if s.MaxIdleConns < 0 {
		errs = errs.Append("storage.max_idle_conns", fmt.Errorf("must not be negative"))
	}
	if s.BusyTimeout < 0 {
		errs = errs.Append("storage.busy_timeout", fmt.Errorf("must not be negative"))
	}

	return errs.ToError()
}

func (c *Config) validateTimers() error {
	t := c.Timers
	return criterio.ValidateStruct(
		criterio.Run("timers.precision", t.Precision, validate.OneOf(ptime.Precisions...)),
		criterio.Run("timers.auto_reset_delay", t.AutoResetDelay, nonNegative),
		criterio.Run("timers.blink_count", t.BlinkCount, validate.BlinkCount),
		criterio.Run("timers.blink_interval", t.BlinkInterval, validate.BlinkInterval),
		criterio.Run("timers.color", t.Color, validate.HexColor),
		criterio.Run("timers.sound_command", t.SoundCommand, tmpl.Check),
	)
}

func (c *Config) validateServer() error {
	var errs criterio.FieldErrorsBuilder
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = errs.Append("server.addr", fmt.Errorf("invalid listen address %q: %w", c.Server.Addr, err))
	}
	if c.Server.ReadHeaderTimeout < 0 {
		errs = errs.Append("server.read_header_timeout", fmt.Errorf("must not be negative"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = errs.Append("server.shutdown_timeout", fmt.Errorf("must not be negative"))
	}
	return errs.ToError()
}

// validatePresets checks each preset builds a valid timer configuration.
func (c *Config) validatePresets() error {
	var errs criterio.FieldErrorsBuilder
	for key, p := range c.Presets {
		field := fmt.Sprintf("presets[%q]", key)
		if err := validate.Identifier(key); err != nil {
			errs = errs.Append(field, err)
			continue
		}

		cfg := p.Configuration(key, c.Timers)
		if err := cfg.Validate(); err != nil {
			errs = errs.Append(field, err)
			continue
		}
		if err := cfg.CheckMarks(); err != nil {
			errs = errs.Append(field, err)
		}
	}
	return errs.ToError()
}

// Configuration builds the timer configuration a preset describes, with
// id as the timer id.
func (p Preset) Configuration(id string, d TimerDefaults) timer.Configuration {
	name := p.Name
	if strings.TrimSpace(name) == "" {
		name = id
	}
	direction := p.Direction
	if direction == "" {
		direction = timer.CountUp
		if !p.Target.IsZero() {
			direction = timer.CountDown
		}
	}
	precision := p.Precision
	if precision == "" {
		precision = d.Precision
	}

	marks := p.BuildMarks(d)
	for i := range marks {
		marks[i].ID = fmt.Sprintf("m%d", i+1)
	}

	return timer.Configuration{
		ID:          id,
		Name:        name,
		Description: p.Description,
		Target:      p.Target,
		Direction:   direction,
		Precision:   precision,
		AutoReset:   p.AutoReset,
		Marks:       marks,
	}
}

func nonNegative(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// ValidateDeep performs comprehensive validation of the configuration
// including file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds
// I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validatePresetFiles(configPath),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Server.Token == "" && !isLoopback(c.Server.Addr) {
		warnings = append(warnings, ValidationWarning{
			Category: "Server",
			Item:     c.Server.Addr,
			Message:  "server listens beyond localhost without a token",
		})
	}
	if c.Storage.Driver == "memory" {
		warnings = append(warnings, ValidationWarning{
			Category: "Storage",
			Message:  "memory storage loses every timer on exit",
		})
	}
	if c.Timers.Sound && c.Timers.SoundCommand == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Timers",
			Message:  "sound is on for new marks but no sound_command is set",
		})
	}
	for key, p := range c.Presets {
		if p.Direction == timer.CountUp && len(p.Marks) == 0 {
			warnings = append(warnings, ValidationWarning{
				Category: "Presets",
				Item:     key,
				Message:  "count-up preset has no marks",
			})
		}
	}

	return warnings
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validateFileAccess checks the config file and storage directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("storage.path", c.Storage.Path, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validatePresetFiles(configPath string) error {
	if len(c.PresetFiles) == 0 {
		return nil
	}

	configDir := filepath.Dir(configPath)
	var errs criterio.FieldErrorsBuilder

	for i, file := range c.PresetFiles {
		if _, err := os.Stat(presetPath(configDir, file)); err != nil {
			errs = errs.Append(fmt.Sprintf("preset_files[%d]", i), fmt.Errorf("file not found: %s", file))
		}
	}

	return errs.ToError()
}
