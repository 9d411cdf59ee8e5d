// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package leaderboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/claudecount/internal/util"
)

var (
	// ErrRateLimited matches an APIError with HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthFailed matches an APIError with HTTP 401 or 403.
	ErrAuthFailed = errors.New("authentication rejected by server")
)

// APIError is a non-2xx response. Body holds the raw response text, which
// the sync workflow classifies.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = util.TruncateWidth(util.SingleLine(e.Body), 200)
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("leaderboard error [%s] (HTTP %d): %s", e.Code, e.Status, msg)
	}
	return fmt.Sprintf("leaderboard error (HTTP %d): %s", e.Status, msg)
}

// Is lets errors.Is match ErrRateLimited and ErrAuthFailed by status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// Text returns the most specific human-readable description.
func (e *APIError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	return http.StatusText(e.Status)
}

// NetworkError is a failure to complete the HTTP exchange: connection
// errors, timeouts, unreadable bodies, or the offline gate.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// apiErrorBody covers the error shapes the server returns:
// {"error": "text"}, {"message": "text"} and {"error": "text", "code": "x"}.
type apiErrorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

// handleErrorResponse converts a non-2xx response into an *APIError.
func handleErrorResponse(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return apiErr
	}
	apiErr.Code = parsed.Code
	apiErr.Message = parsed.Message

	if len(parsed.Error) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Error, &text); err == nil {
			apiErr.Message = text
		} else {
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(parsed.Error, &nested); err == nil {
				if nested.Message != "" {
					apiErr.Message = nested.Message
				}
				if apiErr.Code == "" {
					apiErr.Code = nested.Code
				}
			}
		}
	}
	return apiErr
}
