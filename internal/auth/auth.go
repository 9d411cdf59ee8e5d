// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/claudecount/internal/config"
)

// ErrAuthMissing is returned when no usable credentials are stored.
var ErrAuthMissing = errors.New("not authenticated: sign in to the leaderboard first")

// Credentials identify the user to the leaderboard API.
type Credentials struct {
	TwitterUserID    string
	TwitterHandle    string
	OAuthToken       string
	OAuthTokenSecret string
}

// Valid reports whether every field needed for a request is set.
func (c *Credentials) Valid() bool {
	return c != nil && c.TwitterUserID != "" && c.OAuthToken != "" && c.OAuthTokenSecret != ""
}

// String never prints the secrets.
func (c *Credentials) String() string {
	if c == nil {
		return "<no credentials>"
	}
	return fmt.Sprintf("user=%s handle=%s token=%s", c.TwitterUserID, c.TwitterHandle, Mask(c.OAuthToken))
}

// Provider supplies credentials for API calls.
type Provider interface {
	Credentials(ctx context.Context) (*Credentials, error)
}

// =============================================================================
// PROVIDERS
// =============================================================================

// StoreProvider reads credentials from a config store on every call, so a
// sign-in completed by another process is picked up without restarting.
type StoreProvider struct {
	store *config.Store
}

// NewStoreProvider returns a provider backed by store.
func NewStoreProvider(store *config.Store) *StoreProvider {
	return &StoreProvider{store: store}
}

// Credentials loads the [auth] section. Incomplete credentials yield
// ErrAuthMissing.
func (p *StoreProvider) Credentials(ctx context.Context) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return fromConfig(cfg.Auth)
}

// ConfigProvider serves credentials from an already loaded config.
type ConfigProvider struct {
	auth config.AuthConfig
}

// NewConfigProvider returns a provider for cfg's [auth] section.
func NewConfigProvider(cfg *config.Config) *ConfigProvider {
	return &ConfigProvider{auth: cfg.Auth}
}

// Credentials returns the configured credentials or ErrAuthMissing.
func (p *ConfigProvider) Credentials(context.Context) (*Credentials, error) {
	return fromConfig(p.auth)
}

// Static is a fixed set of credentials. A nil *Static has none.
type Static Credentials

// Credentials returns a copy of s, or ErrAuthMissing when incomplete.
func (s *Static) Credentials(context.Context) (*Credentials, error) {
	if s == nil {
		return nil, ErrAuthMissing
	}
	c := Credentials(*s)
	if !c.Valid() {
		return nil, ErrAuthMissing
	}
	return &c, nil
}

func fromConfig(a config.AuthConfig) (*Credentials, error) {
	if !a.HasCredentials() {
		return nil, ErrAuthMissing
	}
	return &Credentials{
		TwitterUserID:    a.TwitterUserID,
		TwitterHandle:    a.TwitterHandle,
		OAuthToken:       a.OAuthToken,
		OAuthTokenSecret: a.OAuthTokenSecret,
	}, nil
}

// Mask shows only the last four characters of a secret.
// SECURITY: used for every log line and status output that mentions a token.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
