// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth supplies leaderboard credentials.
//
// Credentials (Twitter user ID, OAuth token and token secret) are written
// into the [auth] section of the config store by the sign-in flow. Commands
// read them through a Provider; when any field is missing the provider
// returns ErrAuthMissing and the command stops before making a request.
package auth
