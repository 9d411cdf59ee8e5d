// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Command argument parsing shared by every subcommand.
//
// A flag followed by a non-dash argument consumes it as its value unless the
// flag is registered as boolean, so "stats --resync extra" never swallows
// "extra" into the resync flag.

package cli

import (
	"slices"
	"strings"
)

// ArgParser holds parsed flags and positional arguments for one command.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses args. boolNames lists flags (without dashes) that never
// take a value.
func NewArgParser(args []string, boolNames ...string) *ArgParser {
	known := make(map[string]bool, len(boolNames))
	for _, name := range boolNames {
		known[name] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			p.positional = append(p.positional, args[i+1:]...)
			break
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			p.flags[name[:eq]] = name[eq+1:]
			continue
		}

		if !known[name] && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			p.flags[name] = args[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	if len(p.positional) == 0 {
		return ""
	}
	return p.positional[0]
}

// Positional returns every positional argument.
func (p *ArgParser) Positional() []string {
	return p.positional
}

// Flag returns the value of a valued flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[name]
}

// BoolFlag reports whether a boolean flag was given. "--name=true" and
// "--name=1" also count.
func (p *ArgParser) BoolFlag(name string) bool {
	if p.boolFlags[name] {
		return true
	}
	switch strings.ToLower(p.flags[name]) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// HasFlag reports whether the flag was given in any form.
func (p *ArgParser) HasFlag(name string) bool {
	_, valued := p.flags[name]
	return valued || p.boolFlags[name]
}

// Unknown returns flags that are not in allowed, for usage errors.
func (p *ArgParser) Unknown(allowed ...string) []string {
	ok := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		ok[name] = true
	}
	var unknown []string
	for name := range p.boolFlags {
		if !ok[name] {
			unknown = append(unknown, name)
		}
	}
	for name := range p.flags {
		if !ok[name] {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return unknown
}
