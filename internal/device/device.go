// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package device

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jeranaias/claudecount/internal/config"
)

const (
	// maxHostnamePrefix bounds the sanitized hostname part of an ID.
	maxHostnamePrefix = 20

	// suffixBytes random bytes are hex-encoded into the ID suffix.
	suffixBytes = 4

	fallbackHostname = "device"
)

// Record describes this installation to the leaderboard server.
type Record struct {
	DeviceID       string `json:"device_id"`
	Hostname       string `json:"hostname"`
	Platform       string `json:"platform"`
	RuntimeVersion string `json:"runtime_version"`
}

// Identity resolves the stable device ID for one config store.
type Identity struct {
	store    *config.Store
	hostname func() (string, error)
	random   func([]byte) (int, error)
}

// New returns an Identity backed by store.
func New(store *config.Store) *Identity {
	return &Identity{
		store:    store,
		hostname: os.Hostname,
		random:   rand.Read,
	}
}

// ID returns the persisted device ID, creating and saving one on first use.
// An existing ID is never regenerated and the config file is only written
// when an ID is created.
func (i *Identity) ID() (string, error) {
	var id string
	_, err := i.store.Update(func(cfg *config.Config) error {
		if cfg.DeviceID != "" {
			id = cfg.DeviceID
			return config.ErrUnchanged
		}
		generated, err := i.generate()
		if err != nil {
			return err
		}
		cfg.DeviceID = generated
		id = generated
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve device id: %w", err)
	}
	return id, nil
}

// Metadata returns the device record sent alongside uploads.
func (i *Identity) Metadata() (Record, error) {
	id, err := i.ID()
	if err != nil {
		return Record{}, err
	}
	host, err := i.hostname()
	if err != nil || host == "" {
		host = fallbackHostname
	}
	return Record{
		DeviceID:       id,
		Hostname:       host,
		Platform:       runtime.GOOS,
		RuntimeVersion: runtime.Version(),
	}, nil
}

func (i *Identity) generate() (string, error) {
	host, err := i.hostname()
	if err != nil || host == "" {
		host = fallbackHostname
	}

	suffix := make([]byte, suffixBytes)
	if _, err := i.random(suffix); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return sanitizeHostname(host) + "-" + hex.EncodeToString(suffix), nil
}

// sanitizeHostname maps every character outside [A-Za-z0-9-] to '-' and
// keeps at most maxHostnamePrefix characters.
func sanitizeHostname(host string) string {
	var b strings.Builder
	for _, r := range host {
		if b.Len() == maxHostnamePrefix {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
