// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/config"
	"github.com/jeranaias/claudecount/internal/device"
	"github.com/jeranaias/claudecount/internal/hooks"
	"github.com/jeranaias/claudecount/internal/leaderboard"
	"github.com/jeranaias/claudecount/internal/logger"
	"github.com/jeranaias/claudecount/internal/offline"
	"github.com/jeranaias/claudecount/internal/telemetry"
)

// =============================================================================
// APP
// =============================================================================

// App is the set of components one command runs against. Every field is
// built once by NewApp and passed explicitly; nothing below the CLI reads
// process-wide configuration.
type App struct {
	Store     *config.Store
	Config    *config.Config
	Log       zerolog.Logger
	Creds     auth.Provider
	Device    *device.Identity
	Client    *leaderboard.Client
	Installer *hooks.Installer
	Scanner   *telemetry.TranscriptScanner

	Out io.Writer
	In  io.Reader

	// OpenURL launches the browser. Tests replace it.
	OpenURL func(string) error
	// Now is the clock used for relative times.
	Now func() time.Time
}

// LoggerConfig derives the logger configuration from the environment and
// the global flags. Flags win over the environment.
func LoggerConfig(args Args) logger.Config {
	cfg := logger.ConfigFromEnv()
	switch {
	case args.Debug:
		cfg.Debug = true
	case args.Verbose:
		cfg.Level = "info"
	case args.Quiet:
		cfg.Debug = false
		cfg.Level = "error"
	}
	return cfg
}

// NewApp loads the configuration from store and wires every component.
func NewApp(store *config.Store, args Args) (*App, error) {
	cfg, err := store.Load()
	if err != nil {
		return nil, &ConfigError{Path: store.Path(), Err: err}
	}

	offline.SetOfflineMode(cfg.API.Offline || args.Offline)

	log := logger.Get()
	creds := auth.NewStoreProvider(store)
	dev := device.New(store)

	client := leaderboard.NewClient(cfg.API.Endpoint).
		WithCredentials(creds).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs)*time.Second).
		WithRateLimit(cfg.API.RequestsPerSecond, 1).
		WithUserAgent("claudecount/" + Version).
		WithLogger(log.With().Str("component", "leaderboard").Logger())

	// RELIABILITY: an unwritable config dir must not block read-only
	// commands; requests then go out without X-Device-ID.
	if id, err := dev.ID(); err != nil {
		log.Warn().Err(err).Msg("could not resolve device id")
	} else {
		client = client.WithDeviceID(id)
	}

	return &App{
		Store:  store,
		Config: cfg,
		Log:    log,
		Creds:  creds,
		Device: dev,
		Client: client,
		Installer: hooks.NewInstaller(
			hooks.DefaultPaths(cfg.Paths.ClaudeDir),
			cfg.API.Endpoint,
			hooks.WithLogger(log.With().Str("component", "hooks").Logger()),
		),
		Scanner: telemetry.NewTranscriptScanner(cfg.Paths.ClaudeDir, log.With().Str("component", "scanner").Logger()),
		Out:     os.Stdout,
		In:      os.Stdin,
		OpenURL: openURL,
		Now:     time.Now,
	}, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd and returns the process exit code. Errors are printed
// here, once.
func Run(ctx context.Context, cmd Command, args Args) int {
	if err := logger.Init(LoggerConfig(args)); err != nil {
		DisplayError(cmd.String(), err, args.JSON)
		return ExitConfigError
	}

	switch cmd {
	case CmdHelp:
		return exitCode(cmd, HandleHelp(), args)
	case CmdVersion:
		return exitCode(cmd, HandleVersion(args), args)
	}

	store, err := config.DefaultStore()
	if err != nil {
		DisplayError(cmd.String(), &ConfigError{Err: err}, args.JSON)
		return ExitConfigError
	}

	app, err := NewApp(store, args)
	if err != nil {
		if cmd == CmdHook {
			logger.Warn().Err(err).Msg("hook skipped")
			return ExitSuccess
		}
		return exitCode(cmd, err, args)
	}

	switch cmd {
	case CmdStats:
		err = HandleStats(ctx, app, args)
	case CmdSyncStatus:
		err = HandleSyncStatus(ctx, app, args)
	case CmdInstall:
		err = HandleInstall(app, args)
	case CmdHook:
		HandleHook(ctx, app)
		return ExitSuccess
	case CmdDevice:
		err = HandleDevice(app, args)
	default:
		err = NewUsageError("unknown command " + cmd.String())
	}
	return exitCode(cmd, err, args)
}

func exitCode(cmd Command, err error, args Args) int {
	if err != nil {
		DisplayError(cmd.String(), err, args.JSON)
	}
	return GetExitCode(err)
}
