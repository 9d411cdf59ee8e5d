// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package leaderboard is the HTTP client for the leaderboard API.
//
// # Endpoints
//
//   - GET  /api/user/stats?twitter_user_id=ID       server-side usage totals and rank
//   - POST /api/usage/sync-history                  upload usage entries
//   - GET  /api/user/sync-status?twitter_user_id=ID history sync summary
//
// Every request carries X-OAuth-Token, X-OAuth-Token-Secret and X-Device-ID,
// plus a fresh X-Request-ID for correlating server logs.
//
// # Errors
//
// Transport failures (connection, timeout, offline mode) are returned as
// *NetworkError. Non-2xx responses are returned as *APIError holding the
// status, any structured code, and the raw body; callers classify them.
// Nothing is retried here.
//
// # Usage
//
//	client := leaderboard.NewClient(cfg.API.Endpoint).
//	    WithCredentials(auth.NewStoreProvider(store)).
//	    WithDeviceID(deviceID).
//	    WithTimeout(30 * time.Second)
//	stats, err := client.UserStats(ctx, creds.TwitterUserID)
package leaderboard
