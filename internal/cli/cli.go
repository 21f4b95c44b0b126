// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/marquee-tui/internal/config"
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdWhoami
	CmdProfiles
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:      "tui",
	CmdLogin:    "login",
	CmdLogout:   "logout",
	CmdStatus:   "status",
	CmdWhoami:   "whoami",
	CmdProfiles: "profiles",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

// String returns the command name.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Args holds parsed arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Server     string
	JSON       bool
	Verbose    bool
	Ephemeral  bool

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `marquee - terminal client for the Marquee streaming service

Usage:
  marquee                      Start the TUI (default)
  marquee tui                  Start the TUI
  marquee login [--email E]    Log in and store the session
      --password-stdin         Read the password from stdin
  marquee logout               Erase the stored session
  marquee status, s            Show session status
  marquee whoami               Show the logged-in account (fails if none)
  marquee profiles             List the account's profiles
  marquee config show          Print the effective configuration
  marquee config get <key>     Print one setting, e.g. identity.base_url
  marquee config set <k> <v>   Change a setting in the config file
  marquee config path          Print the config file location
  marquee version              Show version information
  marquee help                 Show this help

Global flags:
  --config <file>              Use this config file
  --server <url>               Identity service base URL
  --json                       Machine-readable output
  -v, --verbose                Also log to stderr
  --ephemeral                  Keep the session in memory only

Environment:
  MARQUEE_HOME                 Config and data directory (default ~/.marquee)
  MARQUEE_IDENTITY_BASE_URL    Same as --server
  MARQUEE_<SECTION>_<KEY>      Override any config key

Version: %s
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// Parse parses command-line arguments, without the program name.
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch name {
	case "tui":
		return CmdTUI, args, nil
	case "login":
		return CmdLogin, args, nil
	case "logout":
		return CmdLogout, args, nil
	case "status", "s":
		return CmdStatus, args, nil
	case "whoami":
		return CmdWhoami, args, nil
	case "profiles", "profile":
		return CmdProfiles, args, nil
	case "config":
		return CmdConfig, args, nil
	case "version", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, NewUsageError(fmt.Sprintf("unknown command %q", name), "marquee help")
	}
}

// parseGlobalFlags extracts global flags, which may appear anywhere.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var remaining []string
	var args Args

	value := func(i *int, flag string) (string, error) {
		if *i+1 >= len(argv) {
			return "", NewUsageError(flag+" needs a value", "marquee "+flag+" <value>")
		}
		*i++
		return argv[*i], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		var err error
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--ephemeral":
			args.Ephemeral = true
		case arg == "--config":
			args.ConfigPath, err = value(&i, arg)
		case arg == "--server":
			args.Server, err = value(&i, arg)
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--server="):
			args.Server = strings.TrimPrefix(arg, "--server=")
		default:
			remaining = append(remaining, arg)
		}
		if err != nil {
			return nil, args, err
		}
	}
	return remaining, args, nil
}

// ApplyOverrides applies flags that override configuration and validates
// the result.
func ApplyOverrides(cfg *config.Config, args Args) error {
	if args.Server != "" {
		cfg.Identity.BaseURL = args.Server
	}
	if args.Ephemeral {
		cfg.Storage.Backend = "memory"
		cfg.Storage.Watch = false
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
