// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the claudecount command line.
//
// # Commands
//
//   - stats: show leaderboard stats, syncing local history when needed
//   - sync-status: show the server's sync summary
//   - install: install or repair the Stop hook
//   - hook: upload one session's usage; run by the hook script
//   - device: show the device record
//   - version, help
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	if err != nil {
//	    cli.DisplayError("claudecount", err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	os.Exit(cli.Run(ctx, cmd, args))
//
// Handlers return errors and never exit. Run prints each error once and
// maps it to an exit code. Every command supports --json, which prints a
// JSONResponse envelope on stdout; diagnostics always go to stderr.
package cli
