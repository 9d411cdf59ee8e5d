// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/claudecount/internal/offline"
	"github.com/jeranaias/claudecount/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultEndpoint is the leaderboard API base URL.
	DefaultEndpoint = "https://api.claudecount.com"

	// DefaultLeaderboardURL is the public leaderboard page.
	DefaultLeaderboardURL = "https://claudecount.com"

	// DefaultTimeoutSecs bounds every API request.
	DefaultTimeoutSecs = 30

	// DefaultRequestsPerSecond paces API requests from one process.
	DefaultRequestsPerSecond = 5

	configDirName  = ".claudecount"
	configFileName = "config.toml"
	claudeDirName  = ".claude"
)

// Environment variables read by ApplyEnvOverrides and DefaultStore.
const (
	EnvHome             = "CLAUDECOUNT_HOME"
	EnvEndpoint         = "CLAUDECOUNT_ENDPOINT"
	EnvOffline          = "CLAUDECOUNT_OFFLINE"
	EnvClaudeDir        = "CLAUDE_CONFIG_DIR"
	EnvTwitterUserID    = "CLAUDECOUNT_TWITTER_USER_ID"
	EnvOAuthToken       = "CLAUDECOUNT_OAUTH_TOKEN"
	EnvOAuthTokenSecret = "CLAUDECOUNT_OAUTH_TOKEN_SECRET"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the persisted claudecount configuration.
type Config struct {
	// DeviceID is created once by the device package and never rewritten.
	DeviceID string `toml:"device_id,omitempty"`

	Auth  AuthConfig  `toml:"auth"`
	API   APIConfig   `toml:"api"`
	Paths PathsConfig `toml:"paths"`
	UI    UIConfig    `toml:"ui"`
}

// AuthConfig holds the credentials written by the sign-in flow.
type AuthConfig struct {
	TwitterUserID    string `toml:"twitter_user_id,omitempty"`
	TwitterHandle    string `toml:"twitter_handle,omitempty"`
	OAuthToken       string `toml:"oauth_token,omitempty"`
	OAuthTokenSecret string `toml:"oauth_token_secret,omitempty"`
}

// HasCredentials reports whether every field needed for an authenticated
// request is present.
func (a AuthConfig) HasCredentials() bool {
	return a.TwitterUserID != "" && a.OAuthToken != "" && a.OAuthTokenSecret != ""
}

// APIConfig configures the leaderboard client.
type APIConfig struct {
	Endpoint          string  `toml:"endpoint"`
	TimeoutSecs       int     `toml:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Offline           bool    `toml:"offline"`
}

// PathsConfig locates the host application's files.
type PathsConfig struct {
	// ClaudeDir holds the hook script, settings.json, leaderboard.json and
	// the session transcripts under projects/.
	ClaudeDir string `toml:"claude_dir"`
}

// UIConfig controls presentation.
type UIConfig struct {
	LeaderboardURL string `toml:"leaderboard_url"`
	OpenBrowser    bool   `toml:"open_browser"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		API: APIConfig{
			Endpoint:          DefaultEndpoint,
			TimeoutSecs:       DefaultTimeoutSecs,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		UI: UIConfig{
			LeaderboardURL: DefaultLeaderboardURL,
			OpenBrowser:    true,
		},
	}
	cfg.Paths.ClaudeDir = defaultClaudeDir()
	return cfg
}

func defaultClaudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, claudeDirName)
}

// fillDefaults replaces zero values left by a partial config file.
func fillDefaults(cfg *Config) {
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = DefaultEndpoint
	}
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = DefaultTimeoutSecs
	}
	if cfg.API.RequestsPerSecond == 0 {
		cfg.API.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Paths.ClaudeDir == "" {
		cfg.Paths.ClaudeDir = defaultClaudeDir()
	}
	if cfg.UI.LeaderboardURL == "" {
		cfg.UI.LeaderboardURL = DefaultLeaderboardURL
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Overrides only affect the in-memory value returned by Store.Load; they are
// never written back by Store.Update.
//
// Supported environment variables:
//   - CLAUDECOUNT_ENDPOINT: overrides api.endpoint
//   - CLAUDECOUNT_OFFLINE: "1" or "true" enables offline mode
//   - CLAUDE_CONFIG_DIR: overrides paths.claude_dir
//   - CLAUDECOUNT_TWITTER_USER_ID: overrides auth.twitter_user_id
//   - CLAUDECOUNT_OAUTH_TOKEN: overrides auth.oauth_token
//   - CLAUDECOUNT_OAUTH_TOKEN_SECRET: overrides auth.oauth_token_secret
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.API.Endpoint = v
	}
	if v := os.Getenv(EnvOffline); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.API.Offline = enabled
		}
	}
	if v := os.Getenv(EnvClaudeDir); v != "" {
		c.Paths.ClaudeDir = v
	}
	if v := os.Getenv(EnvTwitterUserID); v != "" {
		c.Auth.TwitterUserID = v
	}
	if v := os.Getenv(EnvOAuthToken); v != "" {
		c.Auth.OAuthToken = v
	}
	if v := os.Getenv(EnvOAuthTokenSecret); v != "" {
		c.Auth.OAuthTokenSecret = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := offline.ValidateURL(c.API.Endpoint); err != nil {
		errs = append(errs, ValidationError{Field: "api.endpoint", Message: err.Error()})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.RequestsPerSecond <= 0 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_second",
			Message: fmt.Sprintf("must be positive, got %g", c.API.RequestsPerSecond),
		})
	}
	if c.Paths.ClaudeDir == "" {
		errs = append(errs, ValidationError{Field: "paths.claude_dir", Message: "could not determine directory"})
	}
	if c.UI.LeaderboardURL != "" {
		if err := offline.ValidateURL(c.UI.LeaderboardURL); err != nil {
			errs = append(errs, ValidationError{Field: "ui.leaderboard_url", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// STORE
// =============================================================================

// Store is the configuration file for one installation. Components receive
// a *Store explicitly instead of reaching for process-wide state.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore returns the store in CLAUDECOUNT_HOME, or ~/.claudecount.
func DefaultStore() (*Store, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return NewStore(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	return NewStore(filepath.Join(home, configDirName)), nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the config file path.
func (s *Store) Path() string { return filepath.Join(s.dir, configFileName) }

// Load reads the config file, fills defaults, applies environment overrides
// and validates. A missing file yields the defaults.
func (s *Store) Load() (*Config, error) {
	cfg, err := s.loadFile()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the config file atomically with mode 0600.
// SECURITY: the file holds OAuth secrets.
func (s *Store) Save(cfg *Config) error {
	var buf bytes.Buffer
	buf.WriteString("# claudecount configuration file\n")
	buf.WriteString("# Generated by claudecount - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(s.Path(), buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ErrUnchanged is returned by an Update callback that made no change. The
// file is left untouched and Update reports success.
var ErrUnchanged = errors.New("config unchanged")

// Update performs one scoped read-modify-write of the file-backed config.
// fn sees the persisted values without environment overrides. When fn
// returns an error nothing is written. The updated config is returned.
func (s *Store) Update(fn func(*Config) error) (*Config, error) {
	cfg, err := s.loadFile()
	if err != nil {
		return nil, err
	}
	if err := fn(cfg); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return cfg, nil
		}
		return nil, err
	}
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Store) loadFile() (*Config, error) {
	cfg := Default()
	path := s.Path()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ensureSecurePermissions(path)

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	fillDefaults(cfg)
	return cfg, nil
}

// ensureSecurePermissions tightens an existing config file to 0600.
// Failures are ignored; some filesystems cannot represent the mode.
func ensureSecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm() != 0600 {
		_ = os.Chmod(path, 0600)
	}
}
