// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/claudecount/internal/offline"
	"github.com/jeranaias/claudecount/internal/util"
)

// formatTokens groups digits the way the leaderboard site does: 1,234,567.
func formatTokens(n int64) string {
	return humanize.Comma(n)
}

// formatCount is formatTokens for int counters.
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

// formatSyncTime renders a sync timestamp in local time with a relative
// suffix, e.g. "2025-03-01 14:02 (3 days ago)".
func formatSyncTime(t time.Time, now time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.RelTime(t, now, "ago", "from now"))
}

// serverText flattens server-provided text and keeps at most a few terminal
// lines of it.
func serverText(s string) string {
	return util.TruncateWidth(util.SingleLine(s), 4*GetTerminalWidth())
}

// offlineBanner warns that only localhost endpoints are reachable.
func offlineBanner(p printer) {
	if offline.IsOfflineMode() {
		p.line(WarningStyle.Render("["+offline.StatusIndicator()+"]") + " only localhost endpoints are reachable")
	}
}

// openURL opens url in the default browser. It returns once the launcher
// has started.
func openURL(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// printer writes human output, suppressing everything in quiet mode.
type printer struct {
	w     io.Writer
	quiet bool
}

func (p printer) line(a ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.w, a...)
}

func (p printer) linef(format string, a ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p printer) blank() {
	p.line()
}

// field prints an aligned "Label: value" row.
func (p printer) field(label, value string) {
	p.line(RenderLabel(label+":") + ValueStyle.Render(value))
}
