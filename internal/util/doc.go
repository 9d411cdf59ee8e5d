// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the claudecount packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe replace-style writes with fsync
//   - WriteFileIfChanged: byte-compare before writing, reports whether it wrote
//   - FileExists: existence check that never returns an error
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation (CJK aware, via go-runewidth)
//   - SingleLine: collapse multi-line text for inline display
//
// # Usage
//
//	changed, err := util.WriteFileIfChanged(scriptPath, script, 0755)
//	msg := util.TruncateWidth(util.SingleLine(body), 120)
package util
