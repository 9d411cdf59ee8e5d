// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	"github.com/jeranaias/claudecount/internal/leaderboard"
	"github.com/jeranaias/claudecount/internal/reconcile"
)

// HandleSyncStatus prints the server's sync summary. It never uploads.
func HandleSyncStatus(ctx context.Context, app *App, args Args) error {
	creds, err := app.Creds.Credentials(ctx)
	if err != nil {
		return err
	}

	status, err := reconcile.NewStatusReporter(app.Creds, app.Client).Status(ctx)
	if err != nil {
		return NewCommandError("sync-status", "check", "failed to check sync status", err)
	}

	if args.JSON {
		return NewJSONResponse("sync-status", status).Print()
	}

	p := printer{w: app.Out, quiet: args.Quiet}
	p.line(TitleStyle.Render("Sync Status Check"))
	p.line(RenderSeparator("━", 30))
	offlineBanner(p)
	if creds.TwitterHandle != "" {
		p.line(SuccessStyle.Render("Authenticated as") + " " + ValueStyle.Render(creds.TwitterHandle))
	}
	renderSyncStatus(p, status, app.Now())
	return nil
}

func renderSyncStatus(p printer, status *leaderboard.SyncStatus, now time.Time) {
	p.blank()
	p.line(SectionStyle.Render("Sync Information:"))
	p.line(RenderSeparator("─", 20))
	p.line(RenderLabel("History Synced:") + Mark(status.HistorySyncCompleted))

	if t, ok := status.LastSync(); ok {
		p.field("Last Sync", formatSyncTime(t, now))
	} else if status.LastSyncDate != "" {
		p.field("Last Sync", status.LastSyncDate)
	}
	if status.DeviceCount != nil && *status.DeviceCount > 0 {
		p.field("Devices Connected", formatCount(*status.DeviceCount))
	}

	var total int64
	if status.TotalEntries != nil {
		total = *status.TotalEntries
	}
	p.field("Total Entries", formatTokens(total))

	if !status.HistorySyncCompleted {
		p.blank()
		p.line(WarningStyle.Render("Historical data not synced"))
		p.line(DimStyle.Render(`Run "claudecount stats" to sync your usage data`))
	}
}
