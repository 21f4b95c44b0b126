// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/marquee-tui/internal/config"
	"github.com/jeranaias/marquee-tui/internal/identity"
	"github.com/jeranaias/marquee-tui/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
)

// ErrConfig marks configuration load and save failures.
var ErrConfig = errors.New("configuration error")

// ErrNotLoggedIn is returned by commands that need a session when there
// is none.
var ErrNotLoggedIn = errors.New("not logged in")

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a command failure with context.
type CommandError struct {
	Command string // e.g. "config"
	Action  string // e.g. "set"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is a malformed command line.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// NewCommandError creates a CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewUsageError creates a UsageError.
func NewUsageError(reason, example string) error {
	return &UsageError{Reason: reason, Example: example}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var tty *TTYRequiredError
	if errors.As(err, &usage) || errors.As(err, &tty) {
		return ExitUsageError
	}

	var validation config.ValidateErrors
	if errors.As(err, &validation) || errors.Is(err, config.ErrUnknownKey) || errors.Is(err, ErrConfig) {
		return ExitConfigError
	}

	if errors.Is(err, ErrNotLoggedIn) ||
		errors.Is(err, identity.ErrUnauthorized) ||
		errors.Is(err, session.ErrInvalidCredential) {
		return ExitAuthError
	}

	var status *identity.StatusError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) ||
		(errors.As(err, &status) && status.Temporary()) {
		return ExitNetworkError
	}

	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]any{
			"success":   false,
			"error":     err.Error(),
			"exit_code": GetExitCode(err),
		}
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			out["command"] = cmdErr.Command
			out["action"] = cmdErr.Action
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
