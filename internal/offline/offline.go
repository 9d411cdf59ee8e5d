// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNetworkBlocked is returned when a request to a remote host is
	// attempted while offline mode is enabled.
	ErrNetworkBlocked = errors.New("network access disabled in offline mode")

	// ErrInvalidURLScheme is returned for endpoints that are not http or https.
	ErrInvalidURLScheme = errors.New("only http and https endpoints are allowed")

	// ErrInvalidURL is returned when an endpoint cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid endpoint URL")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

var (
	offlineMode   bool
	offlineModeMu sync.RWMutex
)

// SetOfflineMode enables or disables offline mode for the process.
// While enabled only loopback endpoints may be contacted, which keeps
// local test servers usable.
func SetOfflineMode(enabled bool) {
	offlineModeMu.Lock()
	defer offlineModeMu.Unlock()
	offlineMode = enabled
}

// IsOfflineMode reports whether offline mode is enabled.
func IsOfflineMode() bool {
	offlineModeMu.RLock()
	defer offlineModeMu.RUnlock()
	return offlineMode
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host (optionally with a port) is a loopback
// name or address.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
// It does not consider offline mode.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	// SECURITY: file://, data:// and custom handlers never reach the HTTP client.
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}
	if parsed.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// CheckURL validates rawURL and, when offline mode is enabled, rejects any
// host that is not loopback.
func CheckURL(rawURL string) error {
	if err := ValidateURL(rawURL); err != nil {
		return err
	}
	if !IsOfflineMode() {
		return nil
	}
	parsed, _ := url.Parse(rawURL)
	if !IsLocalhost(parsed.Hostname()) {
		return ErrNetworkBlocked
	}
	return nil
}

// StatusIndicator returns a short label for status output.
func StatusIndicator() string {
	if IsOfflineMode() {
		return "OFFLINE"
	}
	return "online"
}
