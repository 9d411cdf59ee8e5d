// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/jeranaias/claudecount/internal/hooks"
)

// InstallData is the --json payload of "claudecount install".
type InstallData struct {
	Installed bool           `json:"installed"`
	Changes   *hooks.Changes `json:"changes,omitempty"`
	Paths     hooks.Paths    `json:"paths"`
}

// HandleInstall installs or repairs the usage hook. With --check it only
// reports whether the hook is in place. Unlike the best-effort check that
// runs before "stats", failures here are returned.
func HandleInstall(app *App, args Args) error {
	inst := app.Installer
	p := printer{w: app.Out, quiet: args.Quiet}

	if args.Check {
		installed := inst.IsInstalled()
		if args.JSON {
			return NewJSONResponse("install", InstallData{Installed: installed, Paths: inst.Paths()}).Print()
		}
		p.line(RenderLabel("Hook installed:") + Mark(installed))
		if !installed {
			p.line(DimStyle.Render(`Run "claudecount install" to install it`))
		}
		return nil
	}

	changes, err := inst.Install()
	if err != nil {
		return NewCommandError("install", "hook", "could not install usage hook", err)
	}

	if args.JSON {
		return NewJSONResponse("install", InstallData{
			Installed: inst.IsInstalled(),
			Changes:   &changes,
			Paths:     inst.Paths(),
		}).Print()
	}

	if !changes.Any() {
		p.line(SuccessStyle.Render("Usage hook is up to date"))
		return nil
	}
	for _, item := range changes.Items() {
		p.line(SuccessStyle.Render("Installed") + " " + ValueStyle.Render(item))
	}
	if changes.LeaderboardConfig {
		p.blank()
		p.line(DimStyle.Render("Set your handle in " + inst.Paths().Leaderboard))
	}
	return nil
}
