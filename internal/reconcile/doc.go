// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile implements the leaderboard sync workflow.
//
// Reconciler.Run compares what the server knows with local usage and
// uploads only when needed:
//
//   - the server has data (total_tokens > 0) and no resync was requested:
//     nothing is uploaded, the stats are displayed
//   - otherwise, including when the stats lookup fails, local transcripts
//     are scanned; an empty scan uploads nothing
//   - the upload's failure text is classified into already synced (counted
//     as success unless resyncing), rate limited, or a generic failure;
//     transport errors become a network error
//
// StatusReporter reads the server's history sync summary without side
// effects.
package reconcile
