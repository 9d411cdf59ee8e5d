// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/claudecount/internal/util"
)

// =============================================================================
// PATHS
// =============================================================================

const (
	// ScriptName is the installed hook script.
	ScriptName = "count_tokens.sh"

	// SettingsName is the host application's settings document.
	SettingsName = "settings.json"

	// LeaderboardName holds the user-editable leaderboard preferences.
	LeaderboardName = "leaderboard.json"

	// DefaultHandle is the placeholder written into a new leaderboard.json.
	DefaultHandle = "@your_handle"
)

//go:embed scripts/count_tokens.sh
var bundledScript []byte

// BundledScript returns the hook script shipped with this binary.
func BundledScript() []byte {
	return append([]byte(nil), bundledScript...)
}

// Paths locates the installer's artifacts.
type Paths struct {
	Dir         string `json:"dir"`
	Script      string `json:"script"`
	Settings    string `json:"settings"`
	Leaderboard string `json:"leaderboard"`
}

// DefaultPaths returns the artifact locations inside claudeDir.
func DefaultPaths(claudeDir string) Paths {
	return Paths{
		Dir:         claudeDir,
		Script:      filepath.Join(claudeDir, ScriptName),
		Settings:    filepath.Join(claudeDir, SettingsName),
		Leaderboard: filepath.Join(claudeDir, LeaderboardName),
	}
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Changes reports which artifacts an install run wrote.
type Changes struct {
	HookScript        bool `json:"hookScript"`
	SettingsJSON      bool `json:"settingsJson"`
	LeaderboardConfig bool `json:"leaderboardConfig"`
}

// Any reports whether anything was written.
func (c Changes) Any() bool {
	return c.HookScript || c.SettingsJSON || c.LeaderboardConfig
}

// Items names the artifacts that were written, in install order.
func (c Changes) Items() []string {
	var items []string
	if c.HookScript {
		items = append(items, "hook script")
	}
	if c.SettingsJSON {
		items = append(items, "settings.json")
	}
	if c.LeaderboardConfig {
		items = append(items, "leaderboard.json")
	}
	return items
}

// LeaderboardConfig is the content of leaderboard.json.
type LeaderboardConfig struct {
	TwitterURL string `json:"twitterUrl"`
	Endpoint   string `json:"endpoint"`
}

// LoadLeaderboardConfig reads leaderboard.json.
func LoadLeaderboardConfig(path string) (*LeaderboardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg LeaderboardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// =============================================================================
// INSTALLER
// =============================================================================

// Installer reconciles the hook script, its settings.json registration and
// leaderboard.json with the desired state. Every step is idempotent: a step
// whose target already matches performs no write.
type Installer struct {
	paths    Paths
	endpoint string
	script   []byte
	log      zerolog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithScript replaces the bundled hook script.
func WithScript(script []byte) Option {
	return func(i *Installer) { i.script = script }
}

// WithLogger sets the logger used for warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(i *Installer) { i.log = l }
}

// NewInstaller returns an installer for paths. endpoint is written into a
// newly created leaderboard.json.
func NewInstaller(paths Paths, endpoint string, opts ...Option) *Installer {
	i := &Installer{
		paths:    paths,
		endpoint: endpoint,
		script:   bundledScript,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Paths returns the artifact locations.
func (i *Installer) Paths() Paths {
	return i.paths
}

// Install runs every step and reports what changed. The first failing step
// aborts the run; earlier steps stay applied.
func (i *Installer) Install() (Changes, error) {
	var changes Changes
	var err error

	if err := os.MkdirAll(i.paths.Dir, 0755); err != nil {
		return changes, fmt.Errorf("failed to create %s: %w", i.paths.Dir, err)
	}

	if changes.HookScript, err = i.installScript(); err != nil {
		return changes, fmt.Errorf("hook script: %w", err)
	}
	if changes.SettingsJSON, err = i.registerHook(); err != nil {
		return changes, fmt.Errorf("settings: %w", err)
	}
	if changes.LeaderboardConfig, err = i.createLeaderboardConfig(); err != nil {
		return changes, fmt.Errorf("leaderboard config: %w", err)
	}

	i.log.Debug().
		Bool("hook_script", changes.HookScript).
		Bool("settings_json", changes.SettingsJSON).
		Bool("leaderboard_config", changes.LeaderboardConfig).
		Msg("hook installation reconciled")
	return changes, nil
}

// EnsureInstalled is the best-effort form of Install used before every
// command. Failures are logged and reported as nil; they never abort the
// caller.
func (i *Installer) EnsureInstalled() *Changes {
	changes, err := i.Install()
	if err != nil {
		i.log.Warn().Err(err).Msg("could not install usage hook")
		return nil
	}
	return &changes
}

// IsInstalled reports whether all three artifacts exist and the hook script
// is executable by the current user. Any error yields false.
func (i *Installer) IsInstalled() bool {
	return util.FileExists(i.paths.Settings) &&
		util.FileExists(i.paths.Leaderboard) &&
		isExecutable(i.paths.Script)
}

// installScript writes the script when its bytes differ and makes sure it
// is executable.
func (i *Installer) installScript() (bool, error) {
	changed, err := util.WriteFileIfChanged(i.paths.Script, i.script, 0755)
	if err != nil {
		return false, err
	}
	if changed || runtime.GOOS == "windows" {
		return changed, nil
	}

	info, err := os.Stat(i.paths.Script)
	if err != nil {
		return false, err
	}
	if info.Mode().Perm()&0111 == 0 {
		if err := os.Chmod(i.paths.Script, 0755); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// registerHook adds the Stop registration for the script to settings.json.
// A settings file that cannot be parsed is treated as empty.
func (i *Installer) registerHook() (bool, error) {
	settings := EmptySettings()

	data, err := os.ReadFile(i.paths.Settings)
	switch {
	case err == nil:
		parsed, perr := ParseSettings(data)
		if perr != nil {
			i.log.Warn().Err(perr).Str("path", i.paths.Settings).
				Msg("could not parse settings, starting from an empty document")
		} else {
			settings = parsed
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	changed, err := settings.EnsureStopCommand(i.paths.Script)
	if err != nil {
		return false, err
	}
	for _, w := range settings.Warnings() {
		i.log.Warn().Str("path", i.paths.Settings).Msg(w)
	}
	if !changed {
		return false, nil
	}

	out, err := settings.Marshal()
	if err != nil {
		return false, err
	}
	if err := util.AtomicWriteFile(i.paths.Settings, out, 0644); err != nil {
		return false, err
	}
	return true, nil
}

// createLeaderboardConfig writes the default leaderboard.json unless one
// exists. An existing file is never modified.
func (i *Installer) createLeaderboardConfig() (bool, error) {
	data, err := json.MarshalIndent(LeaderboardConfig{
		TwitterURL: DefaultHandle,
		Endpoint:   i.endpoint,
	}, "", "  ")
	if err != nil {
		return false, err
	}

	f, err := os.OpenFile(i.paths.Leaderboard, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(i.paths.Leaderboard)
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, err
	}
	return true, nil
}

// Describe renders Changes for a log line or status output.
func Describe(c *Changes) string {
	if c == nil {
		return "installation failed"
	}
	if !c.Any() {
		return "up to date"
	}
	return "updated " + strings.Join(c.Items(), ", ")
}
