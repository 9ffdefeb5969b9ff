package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// ProfilerAddr enables pprof for the dashboard when set.
	ProfilerAddr string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Logger is the process logger built in the Before hook.
	Logger zerolog.Logger
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "marktimer", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "marktimer")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/marktimer/marktimer.log
// On Linux: $XDG_STATE_HOME/marktimer/marktimer.log (defaults to ~/.local/state/marktimer/marktimer.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "marktimer", "marktimer.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "marktimer", "marktimer.log")
	}

	return filepath.Join(home, ".local", "state", "marktimer", "marktimer.log")
}
