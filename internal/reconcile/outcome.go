// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jeranaias/claudecount/internal/leaderboard"
)

// =============================================================================
// STATES
// =============================================================================

// State is a step of the sync workflow.
type State string

const (
	StateStart        State = "START"
	StateFetchStats   State = "FETCH_SERVER_STATS"
	StateHasData      State = "HAS_DATA"
	StateNeedsSync    State = "NEEDS_SYNC"
	StateScan         State = "SCAN_LOCAL"
	StateUpload       State = "UPLOAD"
	StateClassify     State = "CLASSIFY_RESULT"
	StateDone         State = "DONE"
	StateAuthRequired State = "AUTH_MISSING"
)

// FetchState is the result of the server stats lookup.
type FetchState int

const (
	FetchSkipped FetchState = iota
	FetchHasData
	FetchNoData
	FetchFailed
)

func (f FetchState) String() string {
	switch f {
	case FetchHasData:
		return "has_data"
	case FetchNoData:
		return "no_data"
	case FetchFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome is the terminal result of a sync run.
type Outcome int

const (
	// OutcomeDisplayOnly: the server already has data and no resync was asked.
	OutcomeDisplayOnly Outcome = iota
	// OutcomeNothingToSync: the local scan found no entries.
	OutcomeNothingToSync
	// OutcomeSynced: the upload succeeded.
	OutcomeSynced
	// OutcomeAlreadySynced: the server reported history already synced.
	OutcomeAlreadySynced
	// OutcomeRateLimited: the server throttled the upload.
	OutcomeRateLimited
	// OutcomeUploadFailed: any other server rejection.
	OutcomeUploadFailed
	// OutcomeNetworkError: the upload request did not complete.
	OutcomeNetworkError
)

var outcomeNames = map[Outcome]string{
	OutcomeDisplayOnly:   "display_only",
	OutcomeNothingToSync: "nothing_to_sync",
	OutcomeSynced:        "synced",
	OutcomeAlreadySynced: "already_synced",
	OutcomeRateLimited:   "rate_limited",
	OutcomeUploadFailed:  "upload_failed",
	OutcomeNetworkError:  "network_error",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the outcome name for JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Success reports whether the run ended in a state the user does not need
// to act on.
func (o Outcome) Success() bool {
	switch o {
	case OutcomeDisplayOnly, OutcomeNothingToSync, OutcomeSynced, OutcomeAlreadySynced:
		return true
	}
	return false
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Structured codes the server may send alongside the text.
const (
	codeAlreadySynced = "already_synced"
	codeRateLimited   = "rate_limited"
)

// Classify maps a rejected upload to an outcome. Structured codes and HTTP
// 429 are checked first; otherwise the body text decides: "already synced"
// (only when resync was not requested), then "rate limit", else a generic
// failure. Text matching ignores case and any 429 counts as rate limited,
// so this accepts a superset of the server's exact phrasings.
func Classify(apiErr *leaderboard.APIError, resync bool) Outcome {
	if apiErr == nil {
		return OutcomeUploadFailed
	}

	switch strings.ToLower(apiErr.Code) {
	case codeAlreadySynced:
		if !resync {
			return OutcomeAlreadySynced
		}
	case codeRateLimited:
		return OutcomeRateLimited
	}

	text := strings.ToLower(apiErr.Body + " " + apiErr.Message)
	if !resync && strings.Contains(text, "already synced") {
		return OutcomeAlreadySynced
	}
	if apiErr.Status == http.StatusTooManyRequests || strings.Contains(text, "rate limit") {
		return OutcomeRateLimited
	}
	return OutcomeUploadFailed
}

// classifyUploadError maps any SyncHistory error to an outcome.
func classifyUploadError(err error, resync bool) Outcome {
	var apiErr *leaderboard.APIError
	if errors.As(err, &apiErr) {
		return Classify(apiErr, resync)
	}
	return OutcomeNetworkError
}
