// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline gates outbound requests to the leaderboard API.
//
// Offline mode is a process-wide switch (config `api.offline`,
// CLAUDECOUNT_OFFLINE=1 or the --offline flag). When it is on, only loopback
// endpoints may be contacted; the sync workflow then reports a network error
// instead of uploading. Endpoint URLs are validated regardless of mode so
// that only http and https ever reach the HTTP client.
//
// # Usage
//
//	if err := offline.CheckURL(endpoint); err != nil {
//	    return err
//	}
package offline
