// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "https://api.example.test"

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".claude")
	return NewInstaller(DefaultPaths(dir), testEndpoint)
}

func countStopCommands(t *testing.T, path, command string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s, err := ParseSettings(data)
	require.NoError(t, err)

	n := 0
	for _, reg := range s.StopRegistrations() {
		for _, h := range reg.Hooks {
			if h.Type == "command" && h.Command == command {
				n++
			}
		}
	}
	return n
}

// =============================================================================
// INSTALL TESTS
// =============================================================================

func TestInstall_FreshDirectory(t *testing.T) {
	inst := newTestInstaller(t)

	changes, err := inst.Install()
	require.NoError(t, err)
	require.Equal(t, Changes{HookScript: true, SettingsJSON: true, LeaderboardConfig: true}, changes)

	script, err := os.ReadFile(inst.Paths().Script)
	require.NoError(t, err)
	require.Equal(t, BundledScript(), script)

	lb, err := LoadLeaderboardConfig(inst.Paths().Leaderboard)
	require.NoError(t, err)
	require.Equal(t, LeaderboardConfig{TwitterURL: DefaultHandle, Endpoint: testEndpoint}, *lb)

	require.Equal(t, 1, countStopCommands(t, inst.Paths().Settings, inst.Paths().Script))
	require.True(t, inst.IsInstalled())
}

func TestInstall_SecondRunChangesNothing(t *testing.T) {
	inst := newTestInstaller(t)

	_, err := inst.Install()
	require.NoError(t, err)

	before, err := os.ReadFile(inst.Paths().Settings)
	require.NoError(t, err)

	changes, err := inst.Install()
	require.NoError(t, err)
	require.Equal(t, Changes{}, changes)
	require.False(t, changes.Any())

	after, err := os.ReadFile(inst.Paths().Settings)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestInstall_NoDuplicateRegistrations(t *testing.T) {
	inst := newTestInstaller(t)

	for i := 0; i < 5; i++ {
		_, err := inst.Install()
		require.NoError(t, err)
	}
	require.Equal(t, 1, countStopCommands(t, inst.Paths().Settings, inst.Paths().Script))
}

func TestInstall_ScriptUpdatedWhenBytesDiffer(t *testing.T) {
	inst := newTestInstaller(t)
	_, err := inst.Install()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(inst.Paths().Script, []byte("#!/bin/sh\necho stale\n"), 0755))

	changes, err := inst.Install()
	require.NoError(t, err)
	require.Equal(t, Changes{HookScript: true}, changes)

	script, err := os.ReadFile(inst.Paths().Script)
	require.NoError(t, err)
	require.Equal(t, BundledScript(), script)
}

func TestInstall_RestoresExecutableBit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no execute bit on Windows")
	}
	inst := newTestInstaller(t)
	_, err := inst.Install()
	require.NoError(t, err)

	require.NoError(t, os.Chmod(inst.Paths().Script, 0644))
	require.False(t, inst.IsInstalled())

	changes, err := inst.Install()
	require.NoError(t, err)
	require.True(t, changes.HookScript)
	require.True(t, inst.IsInstalled())
}

func TestInstall_PreservesUnrelatedSettings(t *testing.T) {
	inst := newTestInstaller(t)
	require.NoError(t, os.MkdirAll(inst.Paths().Dir, 0755))

	original := `{
  "theme": "dark",
  "permissions": {"allow": ["Bash(ls:*)"], "deny": []},
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "audit.sh", "timeout": 5}]}],
    "Stop": [{"matcher": "", "hooks": [{"type": "command", "command": "notify.sh"}]}]
  },
  "model": "opus"
}`
	require.NoError(t, os.WriteFile(inst.Paths().Settings, []byte(original), 0644))

	changes, err := inst.Install()
	require.NoError(t, err)
	require.True(t, changes.SettingsJSON)

	data, err := os.ReadFile(inst.Paths().Settings)
	require.NoError(t, err)

	// Top-level order is unchanged.
	text := string(data)
	iTheme := strings.Index(text, `"theme"`)
	iPerm := strings.Index(text, `"permissions"`)
	iHooks := strings.Index(text, `"hooks"`)
	iModel := strings.Index(text, `"model"`)
	require.True(t, iTheme < iPerm && iPerm < iHooks && iHooks < iModel, text)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "dark", doc["theme"])
	require.Equal(t, "opus", doc["model"])
	require.Equal(t, map[string]any{"allow": []any{"Bash(ls:*)"}, "deny": []any{}}, doc["permissions"])

	hooks := doc["hooks"].(map[string]any)
	pre := hooks["PreToolUse"].([]any)[0].(map[string]any)
	preHook := pre["hooks"].([]any)[0].(map[string]any)
	require.Equal(t, float64(5), preHook["timeout"])

	stop := hooks["Stop"].([]any)
	require.Len(t, stop, 2)
	require.Equal(t, "notify.sh", stop[0].(map[string]any)["hooks"].([]any)[0].(map[string]any)["command"])
	added := stop[1].(map[string]any)
	require.Equal(t, ".*", added["matcher"])
	require.Equal(t, inst.Paths().Script, added["hooks"].([]any)[0].(map[string]any)["command"])
}

func TestInstall_ExistingRegistrationInAnyStopEntry(t *testing.T) {
	inst := newTestInstaller(t)
	require.NoError(t, os.MkdirAll(inst.Paths().Dir, 0755))

	settings := map[string]any{
		"hooks": map[string]any{
			"Stop": []any{
				map[string]any{"matcher": "custom", "hooks": []any{
					map[string]any{"type": "command", "command": "other.sh"},
					map[string]any{"type": "command", "command": inst.Paths().Script},
				}},
			},
		},
	}
	data, err := json.Marshal(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(inst.Paths().Settings, data, 0644))

	changes, err := inst.Install()
	require.NoError(t, err)
	require.False(t, changes.SettingsJSON)

	after, err := os.ReadFile(inst.Paths().Settings)
	require.NoError(t, err)
	require.Equal(t, data, after, "matching registration must leave the file untouched")
}

func TestInstall_OddlyTypedSiblingsStillMatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path escaping differs on Windows")
	}
	inst := newTestInstaller(t)
	require.NoError(t, os.MkdirAll(inst.Paths().Dir, 0755))

	script := inst.Paths().Script
	data := `{"hooks":{"Stop":[` +
		`{"matcher":".*","hooks":[{"type":"command","command":"` + script + `"},{"type":"command","command":["x"]}]},` +
		`{"matcher":{"tool":"Bash"},"hooks":[{"type":"command","command":{"argv":["y"]}}]}` +
		`]}}`
	require.NoError(t, os.WriteFile(inst.Paths().Settings, []byte(data), 0644))

	for i := 0; i < 3; i++ {
		changes, err := inst.Install()
		require.NoError(t, err)
		require.False(t, changes.SettingsJSON)
	}

	after, err := os.ReadFile(inst.Paths().Settings)
	require.NoError(t, err)
	require.Equal(t, data, string(after))
	require.Equal(t, 1, strings.Count(string(after), script))
}

func TestInstall_NonCommandTypeDoesNotMatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path escaping differs on Windows")
	}
	inst := newTestInstaller(t)
	require.NoError(t, os.MkdirAll(inst.Paths().Dir, 0755))

	data := `{"hooks":{"Stop":[{"matcher":".*","hooks":[{"type":"prompt","command":"` +
		inst.Paths().Script + `"}]}]}}`
	require.NoError(t, os.WriteFile(inst.Paths().Settings, []byte(data), 0644))

	changes, err := inst.Install()
	require.NoError(t, err)
	require.True(t, changes.SettingsJSON)
	require.Equal(t, 1, countStopCommands(t, inst.Paths().Settings, inst.Paths().Script))
}

func TestInstall_RecoversFromCorruptSettings(t *testing.T) {
	var logBuf bytes.Buffer
	dir := filepath.Join(t.TempDir(), ".claude")
	inst := NewInstaller(DefaultPaths(dir), testEndpoint, WithLogger(zerolog.New(&logBuf)))
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(inst.Paths().Settings, []byte("{not json"), 0644))

	changes, err := inst.Install()
	require.NoError(t, err)
	require.True(t, changes.SettingsJSON)
	require.Contains(t, logBuf.String(), "could not parse settings")
	require.Equal(t, 1, countStopCommands(t, inst.Paths().Settings, inst.Paths().Script))
}

func TestInstall_ReplacesMalformedHooksMember(t *testing.T) {
	inst := newTestInstaller(t)
	require.NoError(t, os.MkdirAll(inst.Paths().Dir, 0755))
	require.NoError(t, os.WriteFile(inst.Paths().Settings, []byte(`{"a":1,"hooks":{"Stop":"oops"}}`), 0644))

	_, err := inst.Install()
	require.NoError(t, err)
	require.Equal(t, 1, countStopCommands(t, inst.Paths().Settings, inst.Paths().Script))

	data, err := os.ReadFile(inst.Paths().Settings)
	require.NoError(t, err)
	require.True(t, strings.Index(string(data), `"a"`) < strings.Index(string(data), `"hooks"`))
}

func TestInstall_LeaderboardConfigNeverOverwritten(t *testing.T) {
	inst := newTestInstaller(t)
	require.NoError(t, os.MkdirAll(inst.Paths().Dir, 0755))

	custom := []byte(`{"twitterUrl":"@someone","endpoint":"http://localhost:1234"}`)
	require.NoError(t, os.WriteFile(inst.Paths().Leaderboard, custom, 0644))

	changes, err := inst.Install()
	require.NoError(t, err)
	require.False(t, changes.LeaderboardConfig)

	after, err := os.ReadFile(inst.Paths().Leaderboard)
	require.NoError(t, err)
	require.Equal(t, custom, after)
}

// =============================================================================
// BEST-EFFORT AND STATUS TESTS
// =============================================================================

func TestEnsureInstalled_FailureIsSwallowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a file blocking directory creation")
	}
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	var logBuf bytes.Buffer
	inst := NewInstaller(DefaultPaths(filepath.Join(blocker, ".claude")), testEndpoint,
		WithLogger(zerolog.New(&logBuf)))

	require.Nil(t, inst.EnsureInstalled())
	require.Contains(t, logBuf.String(), "could not install usage hook")
	require.Equal(t, "installation failed", Describe(nil))
}

func TestEnsureInstalled_ReportsChanges(t *testing.T) {
	inst := newTestInstaller(t)

	first := inst.EnsureInstalled()
	require.NotNil(t, first)
	require.True(t, first.Any())
	require.Equal(t, "updated hook script, settings.json, leaderboard.json", Describe(first))

	second := inst.EnsureInstalled()
	require.NotNil(t, second)
	require.Equal(t, "up to date", Describe(second))
}

func TestIsInstalled_MissingArtifacts(t *testing.T) {
	inst := newTestInstaller(t)
	require.False(t, inst.IsInstalled())

	_, err := inst.Install()
	require.NoError(t, err)

	for _, path := range []string{inst.Paths().Settings, inst.Paths().Leaderboard, inst.Paths().Script} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.Remove(path))
		require.False(t, inst.IsInstalled(), "missing %s", filepath.Base(path))
		require.NoError(t, os.WriteFile(path, data, 0755))
	}
}

func TestWithScript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".claude")
	inst := NewInstaller(DefaultPaths(dir), testEndpoint, WithScript([]byte("#!/bin/sh\nexit 0\n")))

	_, err := inst.Install()
	require.NoError(t, err)
	data, err := os.ReadFile(inst.Paths().Script)
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\nexit 0\n", string(data))
}
