// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/device"
	"github.com/jeranaias/claudecount/internal/offline"
	"github.com/jeranaias/claudecount/internal/telemetry"
)

var testCreds = &auth.Static{TwitterUserID: "42", OAuthToken: "tok-123", OAuthTokenSecret: "sec-456"}

func newTestClient(url string) *Client {
	return NewClient(url).
		WithCredentials(testCreds).
		WithDeviceID("box-0a0b0c0d").
		WithRateLimit(0, 0)
}

// =============================================================================
// REQUEST SHAPE TESTS
// =============================================================================

func TestUserStats_RequestAndDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/user/stats", r.URL.Path)
		require.Equal(t, "42 &x", r.URL.Query().Get("twitter_user_id"))
		require.Equal(t, "tok-123", r.Header.Get("X-OAuth-Token"))
		require.Equal(t, "sec-456", r.Header.Get("X-OAuth-Token-Secret"))
		require.Equal(t, "box-0a0b0c0d", r.Header.Get("X-Device-ID"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"stats":{"total_tokens":5000,"input_tokens":1000,"output_tokens":2000,`+
			`"cache_creation_tokens":1500,"cache_read_tokens":500},"rank":7}`)
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).UserStats(context.Background(), "42 &x")
	require.NoError(t, err)
	require.True(t, resp.HasData())
	require.Equal(t, int64(5000), resp.Stats.TotalTokens)
	require.Equal(t, int64(1500), resp.Stats.CacheCreationTokens)
	require.NotNil(t, resp.Rank)
	require.Equal(t, 7, *resp.Rank)
}

func TestStatsResponse_HasData(t *testing.T) {
	var nilResp *StatsResponse
	require.False(t, nilResp.HasData())
	require.False(t, (&StatsResponse{}).HasData())
	require.False(t, (&StatsResponse{Stats: &UserStats{TotalTokens: 0}}).HasData())
	require.True(t, (&StatsResponse{Stats: &UserStats{TotalTokens: 1}}).HasData())
}

func TestSyncHistory_Body(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/usage/sync-history", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"synced_count":2,"rank":3,"stats":{"total_tokens":99}}`)
	}))
	defer server.Close()

	req := &SyncRequest{
		TwitterUserID: "42",
		UsageEntries: []telemetry.Entry{
			{MessageID: "m1", InputTokens: 1, Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			{MessageID: "m2", OutputTokens: 2},
		},
		ForceResync: true,
		Device:      device.Record{DeviceID: "box-0a0b0c0d", Hostname: "box", Platform: "linux", RuntimeVersion: "go1.24"},
	}
	resp, err := newTestClient(server.URL).SyncHistory(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, resp.SyncedCount)
	require.Equal(t, 3, *resp.Rank)
	require.Equal(t, int64(99), resp.Stats.TotalTokens)

	require.Equal(t, "42", got["twitter_user_id"])
	require.Equal(t, true, got["force_resync"])
	require.Len(t, got["usage_entries"], 2)
	dev := got["device"].(map[string]any)
	require.Equal(t, "box-0a0b0c0d", dev["device_id"])
	require.Equal(t, "linux", dev["platform"])
}

func TestSyncStatus_Decode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/user/sync-status", r.URL.Path)
		_, _ = io.WriteString(w, `{"history_sync_completed":true,"last_sync_date":"2025-03-04T05:06:07Z","device_count":2,"total_entries":1234}`)
	}))
	defer server.Close()

	st, err := newTestClient(server.URL).SyncStatus(context.Background(), "42")
	require.NoError(t, err)
	require.True(t, st.HistorySyncCompleted)
	require.Equal(t, 2, *st.DeviceCount)
	require.Equal(t, int64(1234), *st.TotalEntries)

	ts, ok := st.LastSync()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), ts.UTC())
}

func TestSyncStatus_LastSyncFormats(t *testing.T) {
	for _, in := range []string{"2025-03-04", "2025-03-04 10:00:00", "2025-03-04T10:00:00.123+02:00"} {
		_, ok := (&SyncStatus{LastSyncDate: in}).LastSync()
		require.True(t, ok, in)
	}
	_, ok := (&SyncStatus{LastSyncDate: "yesterday"}).LastSync()
	require.False(t, ok)
	_, ok = (&SyncStatus{}).LastSync()
	require.False(t, ok)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
		isRate      bool
		isAuth      bool
	}{
		{"plain text", http.StatusConflict, "History already synced for this account", "", "", false, false},
		{"json error string", http.StatusBadRequest, `{"error":"Rate limit exceeded"}`, "", "Rate limit exceeded", false, false},
		{"json with code", http.StatusConflict, `{"error":"done","code":"already_synced"}`, "already_synced", "done", false, false},
		{"nested error", http.StatusBadRequest, `{"error":{"code":"bad","message":"nope"}}`, "bad", "nope", false, false},
		{"429", http.StatusTooManyRequests, "slow down", "", "", true, false},
		{"401", http.StatusUnauthorized, `{"message":"bad token"}`, "", "bad token", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).SyncHistory(context.Background(), &SyncRequest{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.body, apiErr.Body)
			require.Equal(t, tt.wantCode, apiErr.Code)
			require.Equal(t, tt.wantMessage, apiErr.Message)
			require.Equal(t, tt.isRate, errors.Is(err, ErrRateLimited))
			require.Equal(t, tt.isAuth, errors.Is(err, ErrAuthFailed))
			require.NotEmpty(t, apiErr.Error())
			require.NotEmpty(t, apiErr.Text())
		})
	}
}

func TestNetworkError_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).UserStats(context.Background(), "42")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, "GET /api/user/stats", netErr.Op)
}

func TestNetworkError_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestClient(server.URL).WithTimeout(50*time.Millisecond).UserStats(context.Background(), "42")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestOfflineModeBlocksRemote(t *testing.T) {
	original := offline.IsOfflineMode()
	defer offline.SetOfflineMode(original)
	offline.SetOfflineMode(true)

	_, err := newTestClient("https://api.claudecount.invalid").UserStats(context.Background(), "42")
	require.ErrorIs(t, err, offline.ErrNetworkBlocked)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)

	// Loopback test servers stay reachable.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"stats":null}`)
	}))
	defer server.Close()
	resp, err := newTestClient(server.URL).UserStats(context.Background(), "42")
	require.NoError(t, err)
	require.False(t, resp.HasData())
}

func TestMissingCredentialsStopsBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	var none *auth.Static
	_, err := NewClient(server.URL).WithCredentials(none).UserStats(context.Background(), "42")
	require.ErrorIs(t, err, auth.ErrAuthMissing)
	require.Zero(t, hits.Load())
}

func TestOversizedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("a", MaxResponseSize+10))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).UserStats(context.Background(), "42")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Contains(t, err.Error(), "maximum size")
}

func TestMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).UserStats(context.Background(), "42")
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}

func TestBaseURLTrailingSlash(t *testing.T) {
	require.Equal(t, "https://api.example.com", NewClient("https://api.example.com/").BaseURL())
}
