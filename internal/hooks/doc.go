// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hooks installs the claudecount Stop hook into the host
// application's configuration directory (~/.claude by default).
//
// Three artifacts are reconciled, each idempotently:
//
//   - count_tokens.sh: the bundled hook script, rewritten only when its bytes
//     differ and always left executable
//   - settings.json: gains a hooks.Stop registration
//     {"matcher": ".*", "hooks": [{"type": "command", "command": <script>}]}
//     unless a command hook for the script already exists anywhere in Stop
//   - leaderboard.json: created with a placeholder handle and the API
//     endpoint when missing, never modified afterwards
//
// The settings document is handled as an ordered object with raw values, so
// members unrelated to hooks keep their content and position.
//
// # Usage
//
//	inst := hooks.NewInstaller(hooks.DefaultPaths(cfg.Paths.ClaudeDir), cfg.API.Endpoint,
//	    hooks.WithLogger(logger.WithComponent("hooks")))
//	changes := inst.EnsureInstalled() // nil when installation failed
package hooks
