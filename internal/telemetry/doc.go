// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry reads local token usage from session transcripts.
//
// The host application writes one JSONL transcript per session under
// ~/.claude/projects/<project>/. Every assistant line carries a
// message.usage block; TranscriptScanner turns those into Entry values,
// drops repeats of the same message/request pair (resumed sessions copy
// earlier lines), orders them by timestamp and totals them.
//
// # Key Types
//
//   - Entry: token usage of one assistant response
//   - Totals: input, output, cache creation, cache read and overall sums
//   - Scanner: the interface the sync workflow consumes
//   - TranscriptScanner: Scanner over the transcript directory
//
// # Usage
//
//	sc := telemetry.NewTranscriptScanner(cfg.Paths.ClaudeDir, log)
//	res, err := sc.Scan(ctx)
//	if res.Empty() {
//	    // nothing to upload
//	}
package telemetry
