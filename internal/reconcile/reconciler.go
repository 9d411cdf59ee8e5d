// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/device"
	"github.com/jeranaias/claudecount/internal/leaderboard"
	"github.com/jeranaias/claudecount/internal/telemetry"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// API is the subset of the leaderboard client the workflow needs.
type API interface {
	UserStats(ctx context.Context, userID string) (*leaderboard.StatsResponse, error)
	SyncHistory(ctx context.Context, req *leaderboard.SyncRequest) (*leaderboard.SyncResponse, error)
	SyncStatus(ctx context.Context, userID string) (*leaderboard.SyncStatus, error)
}

// DeviceSource supplies the device record sent with uploads.
type DeviceSource interface {
	Metadata() (device.Record, error)
}

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// Options control one run.
type Options struct {
	// Resync forces a scan and upload even when the server has data, and
	// sets force_resync on the request.
	Resync bool
}

// Result describes what a run did. Fields after Outcome are filled as the
// workflow reaches the corresponding state.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Path    []State `json:"path"`

	Credentials *auth.Credentials `json:"-"`

	Fetch       FetchState                 `json:"-"`
	FetchErr    error                      `json:"-"`
	ServerStats *leaderboard.StatsResponse `json:"server_stats,omitempty"`

	Scan *telemetry.ScanResult `json:"-"`

	Sync      *leaderboard.SyncResponse `json:"sync,omitempty"`
	UploadErr error                     `json:"-"`
}

// EntryCount returns the number of scanned entries, or 0 before the scan.
func (r *Result) EntryCount() int {
	if r.Scan == nil {
		return 0
	}
	return len(r.Scan.Entries)
}

// Stats returns the freshest server aggregate: the upload response when
// present, otherwise the fetched stats.
func (r *Result) Stats() *leaderboard.UserStats {
	if r.Sync != nil && r.Sync.Stats != nil {
		return r.Sync.Stats
	}
	if r.ServerStats != nil {
		return r.ServerStats.Stats
	}
	return nil
}

// Rank returns the freshest known rank.
func (r *Result) Rank() *int {
	if r.Sync != nil && r.Sync.Rank != nil {
		return r.Sync.Rank
	}
	if r.ServerStats != nil {
		return r.ServerStats.Rank
	}
	return nil
}

func (r *Result) enter(s State) {
	r.Path = append(r.Path, s)
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler decides whether local usage must be uploaded and performs the
// upload. It holds no state between runs.
type Reconciler struct {
	creds   auth.Provider
	api     API
	scanner telemetry.Scanner
	device  DeviceSource
	log     zerolog.Logger
}

// New returns a Reconciler.
func New(creds auth.Provider, api API, scanner telemetry.Scanner, dev DeviceSource, log zerolog.Logger) *Reconciler {
	return &Reconciler{creds: creds, api: api, scanner: scanner, device: dev, log: log}
}

// Run executes the workflow:
//
//	START -> FETCH_SERVER_STATS -> HAS_DATA (no resync)      -> DONE
//	                            -> NEEDS_SYNC -> SCAN_LOCAL -> (empty) DONE
//	                                          -> UPLOAD -> CLASSIFY_RESULT -> DONE
//
// Missing credentials return auth.ErrAuthMissing before any request. A
// failed stats fetch proceeds to NEEDS_SYNC. Remote upload failures are
// reported through Result.Outcome, not as an error; only local failures
// (scan, device record) are returned as errors.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	res.enter(StateStart)

	creds, err := r.creds.Credentials(ctx)
	if err != nil {
		res.enter(StateAuthRequired)
		if errors.Is(err, auth.ErrAuthMissing) {
			return res, err
		}
		return res, fmt.Errorf("failed to read credentials: %w", err)
	}
	res.Credentials = creds

	res.enter(StateFetchStats)
	stats, err := r.api.UserStats(ctx, creds.TwitterUserID)
	switch {
	case err != nil:
		res.Fetch = FetchFailed
		res.FetchErr = err
		r.log.Debug().Err(err).Msg("server stats unavailable, syncing local history")
	case stats.HasData():
		res.Fetch = FetchHasData
		res.ServerStats = stats
	default:
		res.Fetch = FetchNoData
		res.ServerStats = stats
	}

	if res.Fetch == FetchHasData && !opts.Resync {
		res.enter(StateHasData)
		res.enter(StateDone)
		res.Outcome = OutcomeDisplayOnly
		return res, nil
	}

	res.enter(StateNeedsSync)
	res.enter(StateScan)
	scan, err := r.scanner.Scan(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read local usage: %w", err)
	}
	res.Scan = scan
	if scan.Empty() {
		res.enter(StateDone)
		res.Outcome = OutcomeNothingToSync
		return res, nil
	}

	rec, err := r.device.Metadata()
	if err != nil {
		return res, err
	}

	res.enter(StateUpload)
	r.log.Debug().
		Int("entries", len(scan.Entries)).
		Bool("force_resync", opts.Resync).
		Msg("uploading usage history")
	resp, err := r.api.SyncHistory(ctx, &leaderboard.SyncRequest{
		TwitterUserID: creds.TwitterUserID,
		UsageEntries:  scan.Entries,
		ForceResync:   opts.Resync,
		Device:        rec,
	})

	res.enter(StateClassify)
	if err != nil {
		res.UploadErr = err
		res.Outcome = classifyUploadError(err, opts.Resync)
		r.log.Debug().Err(err).Stringer("outcome", res.Outcome).Msg("upload rejected")
	} else {
		if resp.SyncedCount == 0 {
			resp.SyncedCount = len(scan.Entries)
		}
		res.Sync = resp
		res.Outcome = OutcomeSynced
	}
	res.enter(StateDone)
	return res, nil
}
