// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for claudecount commands.
//
// Handlers return errors and never exit themselves. Run maps the returned
// error to an exit code and prints it once, as text or as a JSON envelope.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/config"
	"github.com/jeranaias/claudecount/internal/leaderboard"
	"github.com/jeranaias/claudecount/internal/offline"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command step with context.
type CommandError struct {
	Command string // e.g. "stats"
	Action  string // e.g. "scan"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError returns a *CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// UsageError is a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError returns a *UsageError.
func NewUsageError(msg string) error {
	return &UsageError{Message: msg}
}

// ConfigError wraps a failure to load or validate the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var configErr *ConfigError
	var validateErrs config.ValidateErrors
	var netErr *leaderboard.NetworkError

	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.Is(err, auth.ErrAuthMissing), errors.Is(err, leaderboard.ErrAuthFailed):
		return ExitAuthError
	case errors.As(err, &configErr), errors.As(err, &validateErrs):
		return ExitConfigError
	case errors.As(err, &netErr), errors.Is(err, offline.ErrNetworkBlocked):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err to stderr, or as a JSON envelope on stdout in JSON
// mode.
func DisplayError(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print()
		return
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(hint))
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, auth.ErrAuthMissing):
		return `Please run "claudecount auth" to authenticate first`
	case errors.Is(err, leaderboard.ErrAuthFailed):
		return `Your session was rejected. Run "claudecount auth" to re-authenticate`
	case errors.Is(err, offline.ErrNetworkBlocked):
		return "Offline mode is enabled. Unset CLAUDECOUNT_OFFLINE or drop --offline"
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return `Run "claudecount help" for usage`
	}
	return ""
}
