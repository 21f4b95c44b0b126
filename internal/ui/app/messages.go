// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/storage"
)

// =============================================================================
// MESSAGES
// =============================================================================

// splashDoneMsg ends the splash screen.
type splashDoneMsg struct{}

// authFailedMsg reports a login or registration the identity service
// refused before the session controller was involved.
type authFailedMsg struct {
	Register bool
	Err      error
}

// profileCreatedMsg reports the outcome of the create-profile form.
type profileCreatedMsg struct {
	Profile model.Profile
	Err     error
}

// profileSavedMsg reports the outcome of the settings form.
type profileSavedMsg struct {
	Profile         model.Profile
	PasswordChanged bool
	Err             error
}

// logoutDoneMsg reports the end of a logout.
type logoutDoneMsg struct {
	Err error
}

// credentialChangedMsg carries a change made to the credential store by
// another process.
type credentialChangedMsg struct {
	Change storage.Change
}

// =============================================================================
// COMMANDS
// =============================================================================

func splashCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return splashDoneMsg{}
	})
}

// waitForChange blocks for the next external credential change. It yields
// nil once the watcher is closed.
func waitForChange(ch <-chan storage.Change) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return credentialChangedMsg{Change: c}
	}
}
