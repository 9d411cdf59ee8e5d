// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// =============================================================================
// VERSION INFO
// =============================================================================

// Set by -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies a subcommand.
type Command int

const (
	CmdHelp Command = iota
	CmdStats
	CmdSyncStatus
	CmdInstall
	CmdHook
	CmdDevice
	CmdVersion
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdHelp:       "help",
	CmdStats:      "stats",
	CmdSyncStatus: "sync-status",
	CmdInstall:    "install",
	CmdHook:       "hook",
	CmdDevice:     "device",
	CmdVersion:    "version",
	CmdUnknown:    "unknown",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds the parsed command line.
type Args struct {
	// Global flags.
	JSON    bool
	Verbose bool
	Debug   bool
	Quiet   bool
	Offline bool

	// stats
	Resync      bool
	ShowDetails bool
	SkipOpen    bool

	// install
	Check bool

	// Name is the command word as typed, kept for "unknown command" errors.
	Name string
	// Rest holds positional arguments after the command word.
	Rest []string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `claudecount - share your Claude Code token usage on the leaderboard

USAGE:
  claudecount <command> [flags]

COMMANDS:
  stats          Show your leaderboard stats, syncing local history if needed
  sync-status    Show the server's sync summary for your account
  install        Install or repair the usage hook
  device         Show this machine's device record
  hook           Upload one session's usage (run by the Stop hook)
  version        Show version information
  help           Show this help

STATS FLAGS:
  --resync         Re-upload all local history even if the server has data
  --show-details   Print the token breakdown of the local scan
  --skip-open      Do not open the leaderboard in a browser

INSTALL FLAGS:
  --check          Report whether the hook is installed without changing anything

GLOBAL FLAGS:
  --json           Machine-readable output
  -v, --verbose    Log progress to stderr
  --debug          Log requests and decisions to stderr
  -q, --quiet      Only print errors
  --offline        Block every non-localhost request

ENVIRONMENT:
  CLAUDECOUNT_HOME       Config directory (default ~/.claudecount)
  CLAUDECOUNT_ENDPOINT   Leaderboard API base URL
  CLAUDE_CONFIG_DIR      Claude Code directory (default ~/.claude)
  CLAUDECOUNT_OFFLINE    Set to 1 to enable offline mode
  CLAUDE_COUNT_DEBUG     Set to 1 for debug logging

Version: %s
`

// PrintUsage prints the help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("claudecount version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv without the program name. Unknown flags for the
// selected command are a usage error.
func ParseArgs(argv []string) (Command, Args, error) {
	var args Args
	remaining := parseGlobalFlags(argv, &args)

	if len(remaining) == 0 {
		return CmdHelp, args, nil
	}

	args.Name = remaining[0]
	p := NewArgParser(remaining[1:], "resync", "show-details", "skip-open", "check", "help", "h")
	args.Rest = p.Positional()

	if p.BoolFlag("help") || p.BoolFlag("h") {
		return CmdHelp, args, nil
	}

	var cmd Command
	var allowed []string
	switch strings.ToLower(args.Name) {
	case "stats":
		cmd = CmdStats
		allowed = []string{"resync", "show-details", "skip-open"}
		args.Resync = p.BoolFlag("resync")
		args.ShowDetails = p.BoolFlag("show-details")
		args.SkipOpen = p.BoolFlag("skip-open")
	case "sync-status", "status":
		cmd = CmdSyncStatus
	case "install":
		cmd = CmdInstall
		allowed = []string{"check"}
		args.Check = p.BoolFlag("check")
	case "hook":
		cmd = CmdHook
	case "device":
		cmd = CmdDevice
	case "version", "--version":
		cmd = CmdVersion
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		return CmdUnknown, args, NewUsageError(fmt.Sprintf("unknown command %q", args.Name))
	}

	if unknown := p.Unknown(allowed...); len(unknown) > 0 {
		return cmd, args, NewUsageError(fmt.Sprintf("unknown flag for %s: --%s", cmd, unknown[0]))
	}
	return cmd, args, nil
}

// parseGlobalFlags extracts global flags from anywhere in argv and returns
// the rest in order.
func parseGlobalFlags(argv []string, args *Args) []string {
	remaining := make([]string, 0, len(argv))
	for _, arg := range argv {
		switch arg {
		case "--json":
			args.JSON = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--debug":
			args.Debug = true
		case "-q", "--quiet":
			args.Quiet = true
		case "--offline":
			args.Offline = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// VersionData is the JSON form of "claudecount version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion prints version information.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print()
	}
	PrintVersion()
	return nil
}

// HandleHelp prints the help text.
func HandleHelp() error {
	PrintUsage()
	return nil
}
