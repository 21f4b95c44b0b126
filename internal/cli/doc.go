// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the marquee command line and runs the non-interactive
// commands.
//
// Every command that touches the session goes through a session.Controller,
// so the CLI applies the same validation rules as the TUI: status and
// profiles restore the stored credential and erase it when the identity
// service rejects it.
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//		cli.DisplayError(os.Stderr, err, args.JSON)
//		os.Exit(cli.GetExitCode(err))
//	}
//	err = cli.Run(ctx, cmd, args, cli.Env{Config: cfg, Store: store, Identity: client})
//
// # Exit Codes
//
//   - 0 success
//   - 2 usage error
//   - 3 configuration error
//   - 4 not logged in or credential rejected
//   - 5 identity service unreachable
package cli
