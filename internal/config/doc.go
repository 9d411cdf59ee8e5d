// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides the claudecount configuration store.
//
// The configuration lives in ~/.claudecount/config.toml (or the directory
// named by CLAUDECOUNT_HOME) and is written atomically with mode 0600
// because it holds OAuth credentials.
//
// # Key Types
//
//   - Config: device ID, credentials, API, paths and UI settings
//   - Store: one config file with Load, Save and Update
//
// # Lifecycle
//
// Load returns the effective configuration: file values, then defaults for
// anything missing, then environment overrides, then validation. Update is
// the single read-modify-write used for mutations such as creating the
// device ID; it operates on the file values only so overrides are never
// persisted.
//
//	store, _ := config.DefaultStore()
//	cfg, err := store.Load()
//
//	_, err = store.Update(func(c *config.Config) error {
//	    c.DeviceID = "laptop-1a2b3c4d"
//	    return nil
//	})
package config
