// Package logutils builds the process-wide zerolog logger.
package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options controls where and how logs are written.
type Options struct {
	// Level is one of: trace, debug, info, warn, error, fatal, panic.
	Level string
	// File receives JSON logs, appended across runs. Empty writes to
	// Writer instead.
	File string
	// Writer is used when File is empty. Defaults to stderr.
	Writer io.Writer
	// Console renders human-readable lines instead of JSON.
	Console bool
}

// New returns a new logger that writes JSON to the specified file.
// If file is empty, logs are written to stderr.
func New(level string, file string) (zerolog.Logger, func(), error) {
	return Build(Options{Level: level, File: file})
}

// Build returns a logger configured by opts and a closer for any file it
// opened.
func Build(opts Options) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer io.Writer = os.Stderr
	if opts.Writer != nil {
		writer = opts.Writer
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	if opts.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen, NoColor: opts.File != ""}
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}
