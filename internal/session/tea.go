// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/marquee-tui/internal/model"
)

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// StateMsg delivers a new snapshot to the UI.
type StateMsg struct {
	Snapshot Snapshot
}

// Op names an asynchronous controller operation.
type Op string

const (
	OpRestore       Op = "restore"
	OpLogin         Op = "login"
	OpRetryProfiles Op = "retry_profiles"
)

// ResultMsg reports how an asynchronous operation ended. State changes
// arrive separately as StateMsg.
type ResultMsg struct {
	Op  Op
	Err error
}

// WaitForState returns a command that blocks for the next snapshot. The
// UI re-issues it after every StateMsg. It yields nil once ch is closed.
func WaitForState(ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return StateMsg{Snapshot: s}
	}
}

// RestoreCmd runs Restore in the background.
func RestoreCmd(ctx context.Context, c *Controller) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Op: OpRestore, Err: c.Restore(ctx)}
	}
}

// LoginCmd runs Login in the background.
func LoginCmd(ctx context.Context, c *Controller, credential string, account model.Account) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Op: OpLogin, Err: c.Login(ctx, credential, account)}
	}
}

// RetryProfilesCmd runs RetryProfiles in the background.
func RetryProfilesCmd(ctx context.Context, c *Controller) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Op: OpRetryProfiles, Err: c.RetryProfiles(ctx)}
	}
}
