// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package leaderboard

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/claudecount/internal/auth"
	"github.com/jeranaias/claudecount/internal/offline"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond paces requests from one process.
	DefaultRequestsPerSecond = 5

	// MaxResponseSize is the largest response body read.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	pathUserStats   = "/api/user/stats"
	pathSyncHistory = "/api/usage/sync-history"
	pathSyncStatus  = "/api/user/sync-status"

	headerToken       = "X-OAuth-Token"
	headerTokenSecret = "X-OAuth-Token-Secret"
	headerDeviceID    = "X-Device-ID"
	headerRequestID   = "X-Request-ID"
)

// PERFORMANCE: one pooled transport for every client in the process.
// SECURITY: TLS 1.2 minimum, verification always on.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        10,
	MaxIdleConnsPerHost: 4,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the leaderboard API. Every request carries the user's
// OAuth token pair and the device ID. Requests are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      auth.Provider
	deviceID   string
	userAgent  string
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient returns a client for baseURL with default timeout and pacing.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		userAgent: "claudecount",
		limiter:   rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		log:       zerolog.Nop(),
	}
}

// WithCredentials sets the credential source for auth headers.
func (c *Client) WithCredentials(p auth.Provider) *Client {
	c.creds = p
	return c
}

// WithDeviceID sets the X-Device-ID header value.
func (c *Client) WithDeviceID(id string) *Client {
	c.deviceID = id
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the HTTP client, e.g. with an httptest client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit sets request pacing. rps <= 0 disables pacing.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithLogger sets the diagnostics logger.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// UserStats fetches the server-side aggregate for userID.
func (c *Client) UserStats(ctx context.Context, userID string) (*StatsResponse, error) {
	var out StatsResponse
	q := url.Values{"twitter_user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, pathUserStats, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncHistory uploads usage entries.
func (c *Client) SyncHistory(ctx context.Context, req *SyncRequest) (*SyncResponse, error) {
	var out SyncResponse
	if err := c.do(ctx, http.MethodPost, pathSyncHistory, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncStatus fetches the sync summary for userID.
func (c *Client) SyncStatus(ctx context.Context, userID string) (*SyncStatus, error) {
	var out SyncStatus
	q := url.Values{"twitter_user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, pathSyncStatus, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	if err := offline.CheckURL(requestURL); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	// SECURITY: drop secrets before anything can log the request.
	req.Header.Del(headerToken)
	req.Header.Del(headerTokenSecret)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	// CLOUD: secure logging; no headers, no bodies.
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", req.Header.Get(headerRequestID)).
		Msg("leaderboard request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) error {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, uuid.NewString())

	if c.deviceID != "" {
		req.Header.Set(headerDeviceID, c.deviceID)
	}
	if c.creds != nil {
		creds, err := c.creds.Credentials(ctx)
		if err != nil {
			return err
		}
		req.Header.Set(headerToken, creds.OAuthToken)
		req.Header.Set(headerTokenSecret, creds.OAuthTokenSecret)
	}
	return nil
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
