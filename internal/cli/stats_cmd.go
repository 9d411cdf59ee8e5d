// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/jeranaias/claudecount/internal/hooks"
	"github.com/jeranaias/claudecount/internal/leaderboard"
	"github.com/jeranaias/claudecount/internal/reconcile"
	"github.com/jeranaias/claudecount/internal/telemetry"
)

// =============================================================================
// STATS COMMAND
// =============================================================================

// StatsData is the --json payload of "claudecount stats".
type StatsData struct {
	Outcome     reconcile.Outcome      `json:"outcome"`
	Path        []reconcile.State      `json:"path"`
	ServerFetch string                 `json:"server_fetch"`
	Stats       *leaderboard.UserStats `json:"stats,omitempty"`
	Rank        *int                   `json:"rank,omitempty"`
	LocalTotals *telemetry.Totals      `json:"local_totals,omitempty"`
	Entries     int                    `json:"entries"`
	SyncedCount int                    `json:"synced_count,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Install     *hooks.Changes         `json:"install,omitempty"`
	Leaderboard string                 `json:"leaderboard_url"`
}

// HandleStats shows the user's leaderboard stats and uploads local history
// when the server has none or --resync is given. Remote failures are
// reported and leave the exit code at 0; missing credentials and local
// failures are returned.
func HandleStats(ctx context.Context, app *App, args Args) error {
	changes := app.Installer.EnsureInstalled()
	app.Log.Debug().Str("install", hooks.Describe(changes)).Msg("hook check")

	rec := reconcile.New(app.Creds, app.Client, app.Scanner, app.Device,
		app.Log.With().Str("component", "reconcile").Logger())
	res, err := rec.Run(ctx, reconcile.Options{Resync: args.Resync})
	if err != nil {
		return err
	}

	url := app.Config.UI.LeaderboardURL
	if args.JSON {
		data := statsData(res, changes, url)
		return NewJSONResponse("stats", data).
			WithSuccess(res.Outcome.Success(), data.Message).
			Print()
	}

	p := printer{w: app.Out, quiet: args.Quiet}
	showLeaderboard := renderStats(p, res, args)
	if !showLeaderboard {
		return nil
	}

	p.blank()
	p.line(DimStyle.Render("View the full leaderboard at:"))
	p.line(ValueStyle.Render(url))

	if !args.SkipOpen && app.Config.UI.OpenBrowser && IsStdoutTTY() {
		if err := app.OpenURL(url); err != nil {
			app.Log.Debug().Err(err).Msg("could not open browser")
		}
	}
	return nil
}

func statsData(res *reconcile.Result, changes *hooks.Changes, url string) StatsData {
	data := StatsData{
		Outcome:     res.Outcome,
		Path:        res.Path,
		ServerFetch: res.Fetch.String(),
		Stats:       res.Stats(),
		Rank:        res.Rank(),
		Entries:     res.EntryCount(),
		Message:     outcomeMessage(res),
		Install:     changes,
		Leaderboard: url,
	}
	if res.Scan != nil {
		totals := res.Scan.Totals
		data.LocalTotals = &totals
	}
	if res.Sync != nil {
		data.SyncedCount = res.Sync.SyncedCount
	}
	return data
}

// outcomeMessage is the one-line summary of how the run ended.
func outcomeMessage(res *reconcile.Result) string {
	switch res.Outcome {
	case reconcile.OutcomeDisplayOnly:
		return "Stats are up to date on the server"
	case reconcile.OutcomeNothingToSync:
		return "No historical usage data found"
	case reconcile.OutcomeSynced:
		return "Successfully synced " + formatCount(res.Sync.SyncedCount) + " entries"
	case reconcile.OutcomeAlreadySynced:
		return "Historical data already synced"
	case reconcile.OutcomeRateLimited:
		return "Rate limit exceeded. Please try again later"
	case reconcile.OutcomeUploadFailed:
		return "Sync failed: " + uploadErrorText(res.UploadErr)
	case reconcile.OutcomeNetworkError:
		return "Sync error: " + uploadErrorText(res.UploadErr)
	}
	return ""
}

func uploadErrorText(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *leaderboard.APIError
	if errors.As(err, &apiErr) {
		return serverText(apiErr.Text())
	}
	return serverText(err.Error())
}

// renderStats prints the run and reports whether the leaderboard link
// should follow. An empty local scan ends the output early.
func renderStats(p printer, res *reconcile.Result, args Args) bool {
	p.line(TitleStyle.Render("Claude Count Stats"))
	p.line(RenderSeparator("━", 30))
	offlineBanner(p)
	if res.Credentials != nil && res.Credentials.TwitterHandle != "" {
		p.line(SuccessStyle.Render("Authenticated as") + " " + ValueStyle.Render(res.Credentials.TwitterHandle))
	}
	p.blank()

	switch res.Fetch {
	case reconcile.FetchHasData:
		p.line("Current server stats: " + ValueStyle.Render(formatTokens(res.ServerStats.Stats.TotalTokens)) + " tokens")
	case reconcile.FetchNoData:
		p.line(WarningStyle.Render("No token data found on server"))
	case reconcile.FetchFailed:
		p.line(WarningStyle.Render("Failed to fetch server stats: " + serverText(res.FetchErr.Error())))
	}

	if res.Outcome == reconcile.OutcomeDisplayOnly {
		renderServerStats(p, res.ServerStats)
		p.blank()
		p.line(DimStyle.Render("To force resync historical data, run:"))
		p.line(ValueStyle.Render("claudecount stats --resync"))
		return true
	}

	if res.Fetch == reconcile.FetchHasData && args.Resync {
		p.line(WarningStyle.Render("Force resync requested..."))
	}

	p.blank()
	p.line(SectionStyle.Render("Syncing historical usage data..."))

	if res.Outcome == reconcile.OutcomeNothingToSync {
		p.line(WarningStyle.Render("No historical usage data found"))
		p.line(DimStyle.Render("Make sure you have used Claude Code before running this command"))
		return false
	}

	totals := res.Scan.Totals
	p.line("Found " + ValueStyle.Render(formatCount(res.EntryCount())) + " usage entries")
	p.line("Total tokens: " + ValueStyle.Render(formatTokens(totals.Total)))
	if args.ShowDetails {
		p.blank()
		p.line(DimStyle.Render("Token breakdown:"))
		p.linef("  Input: %s", formatTokens(totals.Input))
		p.linef("  Output: %s", formatTokens(totals.Output))
		p.linef("  Cache Creation: %s", formatTokens(totals.CacheCreation))
		p.linef("  Cache Read: %s", formatTokens(totals.CacheRead))
	}

	renderSyncOutcome(p, res)
	return true
}

func renderServerStats(p printer, stats *leaderboard.StatsResponse) {
	s := stats.Stats
	p.blank()
	p.line(SectionStyle.Render("Your Stats:"))
	p.line(RenderSeparator("─", 20))
	p.field("Total Tokens", formatTokens(s.TotalTokens))
	p.field("Input Tokens", formatTokens(s.InputTokens))
	p.field("Output Tokens", formatTokens(s.OutputTokens))
	if s.CacheCreationTokens > 0 {
		p.field("Cache Creation", formatTokens(s.CacheCreationTokens))
	}
	if s.CacheReadTokens > 0 {
		p.field("Cache Read", formatTokens(s.CacheReadTokens))
	}
	if stats.Rank != nil {
		p.blank()
		p.line(SuccessStyle.Render("Leaderboard Rank:") + " " + ValueStyle.Render("#"+formatCount(*stats.Rank)))
	}
}

func renderSyncOutcome(p printer, res *reconcile.Result) {
	msg := outcomeMessage(res)

	switch res.Outcome {
	case reconcile.OutcomeSynced:
		p.line(SuccessStyle.Render(msg))
		if res.Sync.Rank != nil {
			p.blank()
			p.line(SuccessStyle.Render("You're ranked") + " " + ValueStyle.Render("#"+formatCount(*res.Sync.Rank)) + " " + SuccessStyle.Render("on the leaderboard!"))
		}
		if res.Sync.Stats != nil {
			p.blank()
			p.line(SectionStyle.Render("Updated Stats:"))
			p.line(RenderSeparator("─", 20))
			p.field("Total Tokens", formatTokens(res.Sync.Stats.TotalTokens))
		}

	case reconcile.OutcomeAlreadySynced:
		p.line(SuccessStyle.Render(msg))
		p.line(DimStyle.Render("Use --resync flag to force resync"))

	case reconcile.OutcomeRateLimited:
		p.line(ErrorStyle.Render(msg))

	case reconcile.OutcomeUploadFailed:
		p.line(ErrorStyle.Render(msg))
		p.blank()
		p.line(WarningStyle.Render("Troubleshooting tips:"))
		for _, tip := range troubleshootingTips {
			p.line(DimStyle.Render("• " + tip))
		}

	case reconcile.OutcomeNetworkError:
		p.line(ErrorStyle.Render(msg))
		p.blank()
		p.line(WarningStyle.Render("This might be a temporary issue. Try again in a few moments."))
	}
}

var troubleshootingTips = []string{
	"Check your internet connection",
	`Try running "claudecount auth" to re-authenticate`,
	`If the problem persists, run "claudecount reset" and start fresh`,
}
