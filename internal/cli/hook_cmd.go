// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/hooks"
	"github.com/jeranaias/claudecount/internal/leaderboard"
)

// maxHookEventBytes bounds the event read from stdin.
const maxHookEventBytes = 1 << 20

// HookEvent is the JSON the host application writes to the Stop hook's
// stdin.
type HookEvent struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	HookEventName  string `json:"hook_event_name,omitempty"`
}

// errNoTranscript means the event named no transcript to upload.
var errNoTranscript = errors.New("hook event has no transcript_path")

// HandleHook uploads the usage of the session that just stopped. It never
// fails the host application: every error is logged and swallowed.
func HandleHook(ctx context.Context, app *App) {
	if app.In == os.Stdin && IsTTY() {
		app.Log.Warn().Msg("hook expects a Stop event on stdin; it is run by " + hooks.ScriptName)
		return
	}

	n, err := runHook(ctx, app)
	switch {
	case errors.Is(err, auth.ErrAuthMissing):
		app.Log.Debug().Msg("hook skipped: not authenticated")
	case err != nil:
		app.Log.Warn().Err(err).Msg("usage hook failed")
	default:
		app.Log.Info().Int("entries", n).Msg("session usage uploaded")
	}
}

// runHook returns the number of entries the server accepted.
func runHook(ctx context.Context, app *App) (int, error) {
	var event HookEvent
	if err := json.NewDecoder(io.LimitReader(app.In, maxHookEventBytes)).Decode(&event); err != nil {
		return 0, fmt.Errorf("failed to decode hook event: %w", err)
	}
	if event.TranscriptPath == "" {
		return 0, errNoTranscript
	}

	creds, err := app.Creds.Credentials(ctx)
	if err != nil {
		return 0, err
	}

	scan, err := app.Scanner.ScanFile(ctx, event.TranscriptPath)
	if err != nil {
		return 0, err
	}
	if scan.Empty() {
		return 0, nil
	}

	rec, err := app.Device.Metadata()
	if err != nil {
		return 0, err
	}

	resp, err := app.Client.SyncHistory(ctx, &leaderboard.SyncRequest{
		TwitterUserID: creds.TwitterUserID,
		UsageEntries:  scan.Entries,
		Device:        rec,
	})
	if err != nil {
		return 0, err
	}
	if resp.SyncedCount == 0 {
		return len(scan.Entries), nil
	}
	return resp.SyncedCount, nil
}
