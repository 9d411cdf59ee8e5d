// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger provides structured diagnostics for claudecount using
// zerolog. Diagnostics always go to stderr so they never mix with command
// output on stdout.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Environment variables that raise the log level.
const (
	EnvDebug   = "CLAUDE_COUNT_DEBUG"
	EnvVerbose = "VERBOSE"
)

// Config controls logger initialization.
type Config struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...).
	// Empty means "warn".
	Level string
	// Debug forces debug level regardless of Level.
	Debug bool
	// Output overrides the destination. Nil means stderr.
	Output io.Writer
	// JSON disables the console writer even on a terminal.
	JSON bool
}

var (
	mu     sync.RWMutex
	global = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
)

// Init replaces the package logger according to cfg.
func Init(cfg Config) error {
	level := zerolog.WarnLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return err
		}
		level = parsed
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
		if !cfg.JSON && term.IsTerminal(int(os.Stderr.Fd())) {
			out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		}
	}

	mu.Lock()
	global = zerolog.New(out).Level(level).With().Timestamp().Logger()
	mu.Unlock()
	return nil
}

// ConfigFromEnv builds a Config from CLAUDE_COUNT_DEBUG and VERBOSE.
func ConfigFromEnv() Config {
	cfg := Config{}
	if envTrue(os.Getenv(EnvDebug)) {
		cfg.Debug = true
	} else if envTrue(os.Getenv(EnvVerbose)) {
		cfg.Level = "info"
	}
	return cfg
}

func envTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SetLevel changes the level of the package logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	global = global.Level(level)
	mu.Unlock()
}

// SetDebug toggles between debug and the default warn level.
func SetDebug(debug bool) {
	if debug {
		SetLevel(zerolog.DebugLevel)
		return
	}
	SetLevel(zerolog.WarnLevel)
}

// Get returns a copy of the package logger.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(component string) zerolog.Logger {
	l := Get()
	return l.With().Str("component", component).Logger()
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func Debug() *zerolog.Event {
	l := Get()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := Get()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := Get()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := Get()
	return l.Error()
}
