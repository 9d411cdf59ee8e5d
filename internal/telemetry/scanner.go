// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Scanner produces the local usage entries to upload.
type Scanner interface {
	Scan(ctx context.Context) (*ScanResult, error)
}

// maxLineBytes bounds one transcript line. Tool results can be large.
const maxLineBytes = 32 * 1024 * 1024

// transcriptLine is the subset of a transcript record that carries usage.
type transcriptLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
	Cwd       string `json:"cwd"`
	RequestID string `json:"requestId"`
	Message   *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens              int64 `json:"input_tokens"`
			OutputTokens             int64 `json:"output_tokens"`
			CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

// TranscriptScanner reads session transcripts (*.jsonl) under
// <claudeDir>/projects.
type TranscriptScanner struct {
	root string
	log  zerolog.Logger
}

// NewTranscriptScanner returns a scanner for the transcripts of claudeDir.
func NewTranscriptScanner(claudeDir string, log zerolog.Logger) *TranscriptScanner {
	return &TranscriptScanner{
		root: filepath.Join(claudeDir, "projects"),
		log:  log,
	}
}

// Scan reads every transcript. A missing projects directory is an empty
// result, not an error.
func (s *TranscriptScanner) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return fs.SkipAll
			}
			s.log.Debug().Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		if err := s.scanInto(ctx, path, result); err != nil {
			s.log.Debug().Err(err).Str("path", path).Msg("skipping transcript")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	result.finish()
	s.log.Debug().
		Int("files", result.Files).
		Int("entries", len(result.Entries)).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Msg("transcript scan complete")
	return result, nil
}

// ScanFile reads a single transcript.
func (s *TranscriptScanner) ScanFile(ctx context.Context, path string) (*ScanResult, error) {
	result := &ScanResult{}
	if err := s.scanInto(ctx, path, result); err != nil {
		return nil, err
	}
	result.finish()
	return result, nil
}

func (s *TranscriptScanner) scanInto(ctx context.Context, path string, result *ScanResult) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	project := projectName(s.root, path)
	entries, skipped, err := parseTranscript(ctx, f, project)
	if err != nil {
		return err
	}
	result.Files++
	result.Skipped += skipped
	result.Entries = append(result.Entries, entries...)
	return nil
}

// parseTranscript decodes usage entries from r. Malformed lines are counted
// and skipped.
func parseTranscript(ctx context.Context, r io.Reader, project string) ([]Entry, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var entries []Entry
	skipped := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec transcriptLine
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		entry, ok := rec.entry(project)
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return entries, skipped, nil
}

func (l transcriptLine) entry(project string) (Entry, bool) {
	if l.Type != "assistant" || l.Message == nil || l.Message.Usage == nil {
		return Entry{}, false
	}
	u := l.Message.Usage
	e := Entry{
		SessionID:           l.SessionID,
		ProjectPath:         project,
		Model:               l.Message.Model,
		MessageID:           l.Message.ID,
		RequestID:           l.RequestID,
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheCreationTokens: u.CacheCreationInputTokens,
		CacheReadTokens:     u.CacheReadInputTokens,
	}
	if l.Cwd != "" {
		e.ProjectPath = l.Cwd
	}
	if e.Total() == 0 {
		return Entry{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, l.Timestamp); err == nil {
		e.Timestamp = ts.UTC()
	}
	return e, true
}

// projectName returns the project directory of a transcript relative to
// root, or "" when path is outside it.
func projectName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}
