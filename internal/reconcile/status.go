// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/leaderboard"
)

// StatusAPI is the subset of the leaderboard client the reporter needs.
type StatusAPI interface {
	SyncStatus(ctx context.Context, userID string) (*leaderboard.SyncStatus, error)
}

// StatusReporter reads the server's sync summary. It never uploads or
// changes local state.
type StatusReporter struct {
	creds auth.Provider
	api   StatusAPI
}

// NewStatusReporter returns a StatusReporter.
func NewStatusReporter(creds auth.Provider, api StatusAPI) *StatusReporter {
	return &StatusReporter{creds: creds, api: api}
}

// Status returns the sync summary for the signed-in user. Missing
// credentials return auth.ErrAuthMissing without a request.
func (s *StatusReporter) Status(ctx context.Context) (*leaderboard.SyncStatus, error) {
	creds, err := s.creds.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.SyncStatus(ctx, creds.TwitterUserID)
}
