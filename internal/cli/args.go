// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits command arguments into positionals and flags.
//
// Supported forms:
//
//	--flag value     string flag
//	--flag=value     string flag
//	-f value         short string flag
//	--flag           boolean flag
//
// A flag listed in boolFlags never consumes the next argument, so
// "--json show" keeps "show" positional.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser parses raw. boolFlags names flags that take no value.
//
//	p := NewArgParser([]string{"get", "identity.base_url", "--json"}, "json")
//	p.Subcommand()     // "get"
//	p.Positional(1)    // "identity.base_url"
//	p.BoolFlag("json") // true
func NewArgParser(raw []string, boolFlags ...string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		raw:       raw,
	}
	isBool := make(map[string]bool, len(boolFlags))
	for _, name := range boolFlags {
		isBool[name] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if isBool[k] || v == "true" || v == "false" {
				p.boolFlags[k] = v == "true"
			} else {
				p.flags[k] = v
			}
			continue
		}
		if !isBool[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

// Subcommand returns the first positional argument.
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag or def when it is unset.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// BoolFlag returns a boolean flag.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// HasFlag reports whether the flag was given in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, s := p.flags[name]
	_, b := p.boolFlags[name]
	return s || b
}

// Positional returns positional argument i, or "".
func (p *ArgParser) Positional(i int) string {
	if i < 0 || i >= len(p.positional) {
		return ""
	}
	return p.positional[i]
}

// PositionalFrom returns the positionals starting at i.
func (p *ArgParser) PositionalFrom(i int) []string {
	if i < 0 || i >= len(p.positional) {
		return []string{}
	}
	return p.positional[i:]
}

// PositionalCount is the number of positionals.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// Raw returns the unparsed arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}
