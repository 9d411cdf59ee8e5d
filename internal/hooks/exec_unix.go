// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package hooks

import "golang.org/x/sys/unix"

// isExecutable reports whether the current user may execute path.
func isExecutable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}
