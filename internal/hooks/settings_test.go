// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSettings_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n"} {
		s, err := ParseSettings([]byte(in))
		require.NoError(t, err)
		out, err := s.Marshal()
		require.NoError(t, err)
		require.Equal(t, "{}", string(out))
	}
}

func TestParseSettings_Rejects(t *testing.T) {
	for _, in := range []string{"[1,2]", `"str"`, "{", `{"a":1} {"b":2}`, "{not json"} {
		_, err := ParseSettings([]byte(in))
		require.Error(t, err, "input %q", in)
	}
}

func TestSettings_RoundTripPreservesOrderAndValues(t *testing.T) {
	in := `{"zeta":1,"alpha":{"nested":[1,2,{"x":null}]},"big":12345678901234567890,"html":"<a&b>"}`

	s, err := ParseSettings([]byte(in))
	require.NoError(t, err)
	out, err := s.Marshal()
	require.NoError(t, err)

	want := `{
  "zeta": 1,
  "alpha": {
    "nested": [
      1,
      2,
      {
        "x": null
      }
    ]
  },
  "big": 12345678901234567890,
  "html": "<a&b>"
}`
	require.Equal(t, want, string(out))
}

func TestSettings_EnsureStopCommand(t *testing.T) {
	s := EmptySettings()

	changed, err := s.EnsureStopCommand("/home/u/.claude/count_tokens.sh")
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, s.HasStopCommand("/home/u/.claude/count_tokens.sh"))

	changed, err = s.EnsureStopCommand("/home/u/.claude/count_tokens.sh")
	require.NoError(t, err)
	require.False(t, changed)

	regs := s.StopRegistrations()
	require.Equal(t, []Registration{{
		Matcher: ".*",
		Hooks:   []HookCommand{{Type: "command", Command: "/home/u/.claude/count_tokens.sh"}},
	}}, regs)

	out, err := s.Marshal()
	require.NoError(t, err)
	require.Equal(t, `{
  "hooks": {
    "Stop": [
      {
        "matcher": ".*",
        "hooks": [
          {
            "type": "command",
            "command": "/home/u/.claude/count_tokens.sh"
          }
        ]
      }
    ]
  }
}`, string(out))
}

func TestSettings_KeepsOtherHookEventsInPlace(t *testing.T) {
	s, err := ParseSettings([]byte(`{"hooks":{"PreToolUse":[],"Stop":[],"Notification":[]}}`))
	require.NoError(t, err)

	_, err = s.EnsureStopCommand("/x/count_tokens.sh")
	require.NoError(t, err)

	out, err := s.Marshal()
	require.NoError(t, err)
	require.Regexp(t, `(?s)"PreToolUse".*"Stop".*count_tokens\.sh.*"Notification"`, string(out))
}

func TestSettings_WrongShapesAreReplacedWithWarning(t *testing.T) {
	s, err := ParseSettings([]byte(`{"hooks":[1,2]}`))
	require.NoError(t, err)
	require.False(t, s.HasStopCommand("/x.sh"))

	changed, err := s.EnsureStopCommand("/x.sh")
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, s.Warnings(), 1)
	require.True(t, s.HasStopCommand("/x.sh"))
}

func TestSettings_PathWithAmpersandNotEscaped(t *testing.T) {
	s := EmptySettings()
	_, err := s.EnsureStopCommand("/Users/R&D/.claude/count_tokens.sh")
	require.NoError(t, err)

	out, err := s.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(out), `"/Users/R&D/.claude/count_tokens.sh"`)
}

func TestStopRegistrations_LenientFields(t *testing.T) {
	s, err := ParseSettings([]byte(`{"hooks":{"Stop":[
		{"matcher":7,"hooks":[{"type":"command","command":"/x.sh"},{"type":"command","command":["x"]},"bare"]},
		"not-an-entry",
		{"matcher":".*","hooks":{"type":"command"}}
	]}}`))
	require.NoError(t, err)

	require.Equal(t, []Registration{
		{Hooks: []HookCommand{{Type: "command", Command: "/x.sh"}, {Type: "command"}}},
		{Matcher: ".*"},
	}, s.StopRegistrations())
	require.True(t, s.HasStopCommand("/x.sh"))
}
