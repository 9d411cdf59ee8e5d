// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package leaderboard

import (
	"time"

	"github.com/jeranaias/claudecount/internal/device"
	"github.com/jeranaias/claudecount/internal/telemetry"
)

// UserStats is the server-side usage aggregate for one user.
type UserStats struct {
	TotalTokens         int64 `json:"total_tokens"`
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
}

// StatsResponse is returned by GET /api/user/stats.
type StatsResponse struct {
	Stats *UserStats `json:"stats"`
	Rank  *int       `json:"rank,omitempty"`
}

// HasData reports whether the server holds any usage for the user. A zero
// token total counts as no data.
func (r *StatsResponse) HasData() bool {
	return r != nil && r.Stats != nil && r.Stats.TotalTokens > 0
}

// SyncRequest is the body of POST /api/usage/sync-history.
type SyncRequest struct {
	TwitterUserID string            `json:"twitter_user_id"`
	UsageEntries  []telemetry.Entry `json:"usage_entries"`
	ForceResync   bool              `json:"force_resync"`
	Device        device.Record     `json:"device"`
}

// SyncResponse is the success body of POST /api/usage/sync-history.
type SyncResponse struct {
	SyncedCount int        `json:"synced_count"`
	Rank        *int       `json:"rank,omitempty"`
	Stats       *UserStats `json:"stats,omitempty"`
}

// SyncStatus is returned by GET /api/user/sync-status.
type SyncStatus struct {
	HistorySyncCompleted bool   `json:"history_sync_completed"`
	LastSyncDate         string `json:"last_sync_date,omitempty"`
	DeviceCount          *int   `json:"device_count,omitempty"`
	TotalEntries         *int64 `json:"total_entries,omitempty"`
}

// LastSync parses LastSyncDate. The server sends RFC 3339; a date-only
// value is also accepted.
func (s *SyncStatus) LastSync() (time.Time, bool) {
	if s == nil || s.LastSyncDate == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s.LastSyncDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
