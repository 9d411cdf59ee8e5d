// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package device gives each installation a stable identifier.
//
// The ID has the form <hostname>-<8 hex chars>, where the hostname part is
// sanitized to [A-Za-z0-9-] and truncated to 20 characters. It is created on
// first use inside a single config.Store.Update and persisted as
// `device_id`; later calls return the stored value unchanged.
//
//	id := device.New(store)
//	rec, err := id.Metadata() // {device_id, hostname, platform, runtime_version}
package device
