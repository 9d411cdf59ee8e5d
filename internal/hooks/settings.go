// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// ORDERED OBJECT
// =============================================================================

// object is a JSON object that remembers member order and keeps every value
// as raw JSON, so members this package does not understand survive a
// read-modify-write unchanged.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func newObject() *object {
	return &object{values: make(map[string]json.RawMessage)}
}

// parseObject decodes data, which must be a single JSON object.
func parseObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, found %v", tok)
	}

	obj := newObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, found %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		obj.set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return obj, nil
}

func (o *object) get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

// set replaces the value in place, or appends the key when it is new.
func (o *object) set(key string, value json.RawMessage) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *object) marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape encodes v without HTML escaping; paths may contain '&'.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// =============================================================================
// SETTINGS DOCUMENT
// =============================================================================

const (
	hooksKey        = "hooks"
	stopEvent       = "Stop"
	commandHookType = "command"
	matchAll        = ".*"
)

// HookCommand is one command hook inside a registration.
type HookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// Registration is one entry of a hook event list.
type Registration struct {
	Matcher string        `json:"matcher"`
	Hooks   []HookCommand `json:"hooks"`
}

// Settings is the host application's settings.json. Only hooks.Stop is
// interpreted; every other member is carried through verbatim and in its
// original position.
type Settings struct {
	root     *object
	warnings []string
}

// ParseSettings decodes a settings document. Empty input yields an empty
// document. Invalid JSON is returned as an error; callers decide whether to
// recover.
func ParseSettings(data []byte) (*Settings, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Settings{root: newObject()}, nil
	}
	root, err := parseObject(data)
	if err != nil {
		return nil, err
	}
	return &Settings{root: root}, nil
}

// EmptySettings returns a document with no members.
func EmptySettings() *Settings {
	return &Settings{root: newObject()}
}

// Warnings lists members that had an unexpected shape and were replaced.
func (s *Settings) Warnings() []string {
	return s.warnings
}

// StopRegistrations returns the hooks.Stop entries. Each member is decoded
// on its own, so a field of an unexpected type only loses that field: an
// entry with a non-string matcher still yields its hooks, and a hook whose
// command is not a string is kept with an empty command. Entries that are
// not objects are skipped.
func (s *Settings) StopRegistrations() []Registration {
	var regs []Registration
	for _, raw := range s.stopEntries(s.hooksObject(false), false) {
		if reg, ok := decodeRegistration(raw); ok {
			regs = append(regs, reg)
		}
	}
	return regs
}

func decodeRegistration(raw json.RawMessage) (Registration, bool) {
	var fields struct {
		Matcher json.RawMessage `json:"matcher"`
		Hooks   json.RawMessage `json:"hooks"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Registration{}, false
	}

	reg := Registration{Matcher: decodeString(fields.Matcher)}
	var hooks []json.RawMessage
	if err := json.Unmarshal(fields.Hooks, &hooks); err != nil {
		return reg, true
	}
	for _, h := range hooks {
		var hook struct {
			Type    json.RawMessage `json:"type"`
			Command json.RawMessage `json:"command"`
		}
		if err := json.Unmarshal(h, &hook); err != nil {
			continue
		}
		reg.Hooks = append(reg.Hooks, HookCommand{
			Type:    decodeString(hook.Type),
			Command: decodeString(hook.Command),
		})
	}
	return reg, true
}

// decodeString returns raw as a string, or "" when it holds anything else.
func decodeString(raw json.RawMessage) string {
	var v string
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	return v
}

// HasStopCommand reports whether any hooks.Stop registration already runs
// command as a command hook.
func (s *Settings) HasStopCommand(command string) bool {
	for _, reg := range s.StopRegistrations() {
		for _, h := range reg.Hooks {
			if h.Type == commandHookType && h.Command == command {
				return true
			}
		}
	}
	return false
}

// EnsureStopCommand appends a catch-all registration for command unless one
// already exists. It reports whether the document changed.
func (s *Settings) EnsureStopCommand(command string) (bool, error) {
	if s.HasStopCommand(command) {
		return false, nil
	}

	hooks := s.hooksObject(true)
	entries := s.stopEntries(hooks, true)

	entry, err := marshalNoEscape(Registration{
		Matcher: matchAll,
		Hooks:   []HookCommand{{Type: commandHookType, Command: command}},
	})
	if err != nil {
		return false, err
	}
	entries = append(entries, entry)

	stop, err := marshalNoEscape(entries)
	if err != nil {
		return false, err
	}
	hooks.set(stopEvent, stop)

	hooksRaw, err := hooks.marshal()
	if err != nil {
		return false, err
	}
	s.root.set(hooksKey, hooksRaw)
	return true, nil
}

// Marshal encodes the document with two-space indentation.
func (s *Settings) Marshal() ([]byte, error) {
	compact, err := s.root.marshal()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// hooksObject returns the parsed "hooks" member. A member of the wrong type
// is treated as absent; when record is set that is noted as a warning.
func (s *Settings) hooksObject(record bool) *object {
	raw, ok := s.root.get(hooksKey)
	if !ok {
		return newObject()
	}
	obj, err := parseObject(raw)
	if err != nil {
		if record {
			s.warnings = append(s.warnings, fmt.Sprintf("%q is not an object and was replaced", hooksKey))
		}
		return newObject()
	}
	return obj
}

// stopEntries returns the Stop member of hooks as raw entries.
func (s *Settings) stopEntries(hooks *object, record bool) []json.RawMessage {
	raw, ok := hooks.get(stopEvent)
	if !ok {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		if record {
			s.warnings = append(s.warnings, fmt.Sprintf("%q is not an array and was replaced", hooksKey+"."+stopEvent))
		}
		return nil
	}
	return entries
}
