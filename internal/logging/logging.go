// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging sets up marquee's structured logger.
//
// The terminal belongs to the UI, so logs go to a size-rotated file under
// the config directory. The CLI may add a console copy on stderr with
// --verbose.
package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jeranaias/marquee-tui/internal/config"
)

// DefaultFile is the log file name inside the config directory.
const DefaultFile = "marquee.log"

// Options configures Init.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string

	// Path of the log file. Empty disables the file.
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console, when set, also receives human-readable output.
	Console io.Writer
}

// FromConfig builds Options from the [log] section. A relative or empty
// path is resolved against dir. Verbose forces debug level.
func FromConfig(cfg config.LogConfig, dir string, verbose bool) Options {
	path := cfg.Path
	switch {
	case path == "":
		path = filepath.Join(dir, DefaultFile)
	case !filepath.IsAbs(path):
		path = filepath.Join(dir, path)
	}
	level := cfg.Level
	if verbose {
		level = zerolog.LevelDebugValue
	}
	return Options{
		Level:      level,
		Path:       path,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	}
}

// Init builds the logger, installs it as the zerolog global and returns it
// with a func that flushes and closes the log file.
func Init(service string, opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var writers []io.Writer
	closer := func() error { return nil }
	if opts.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			LocalTime:  true,
		}
		writers = append(writers, rotator)
		closer = rotator.Close
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.Kitchen,
			FormatLevel: func(i any) string {
				return fmt.Sprintf("| %-6s|", i)
			},
		})
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	log.Logger = logger
	return logger, closer, nil
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
