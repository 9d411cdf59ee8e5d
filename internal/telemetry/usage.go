// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sort"
	"time"
)

// =============================================================================
// USAGE ENTRY
// =============================================================================

// Entry is the token usage of one assistant response, as uploaded to the
// leaderboard.
type Entry struct {
	Timestamp           time.Time `json:"timestamp"`
	SessionID           string    `json:"session_id,omitempty"`
	ProjectPath         string    `json:"project_path,omitempty"`
	Model               string    `json:"model,omitempty"`
	MessageID           string    `json:"message_id,omitempty"`
	RequestID           string    `json:"request_id,omitempty"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
}

// Total returns the sum of all four token counts.
func (e Entry) Total() int64 {
	return e.InputTokens + e.OutputTokens + e.CacheCreationTokens + e.CacheReadTokens
}

// DedupKey identifies a response across transcript files. Resumed sessions
// repeat earlier lines, so the same response can appear more than once.
// Entries without either ID have no key.
func (e Entry) DedupKey() string {
	if e.MessageID == "" && e.RequestID == "" {
		return ""
	}
	return e.MessageID + ":" + e.RequestID
}

// =============================================================================
// TOTALS
// =============================================================================

// Totals aggregates token counts.
type Totals struct {
	Input         int64 `json:"input_tokens"`
	Output        int64 `json:"output_tokens"`
	CacheCreation int64 `json:"cache_creation_tokens"`
	CacheRead     int64 `json:"cache_read_tokens"`
	Total         int64 `json:"total_tokens"`
}

// Add accumulates e into t.
func (t *Totals) Add(e Entry) {
	t.Input += e.InputTokens
	t.Output += e.OutputTokens
	t.CacheCreation += e.CacheCreationTokens
	t.CacheRead += e.CacheReadTokens
	t.Total += e.Total()
}

// Sum returns the totals of entries.
func Sum(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		t.Add(e)
	}
	return t
}

// =============================================================================
// SCAN RESULT
// =============================================================================

// ScanResult is the output of a scan.
type ScanResult struct {
	Entries []Entry `json:"entries"`
	Totals  Totals  `json:"totals"`

	// Files is the number of transcript files read.
	Files int `json:"files"`
	// Skipped counts lines that could not be decoded.
	Skipped int `json:"skipped"`
	// Duplicates counts entries dropped by deduplication.
	Duplicates int `json:"duplicates"`
}

// Empty reports whether the scan found no usage.
func (r *ScanResult) Empty() bool {
	return r == nil || len(r.Entries) == 0
}

// finish deduplicates, orders by timestamp and computes totals.
func (r *ScanResult) finish() {
	seen := make(map[string]struct{}, len(r.Entries))
	kept := r.Entries[:0]
	for _, e := range r.Entries {
		if key := e.DedupKey(); key != "" {
			if _, dup := seen[key]; dup {
				r.Duplicates++
				continue
			}
			seen[key] = struct{}{}
		}
		kept = append(kept, e)
	}
	r.Entries = kept

	sort.SliceStable(r.Entries, func(i, j int) bool {
		return r.Entries[i].Timestamp.Before(r.Entries[j].Timestamp)
	})
	r.Totals = Sum(r.Entries)
}
