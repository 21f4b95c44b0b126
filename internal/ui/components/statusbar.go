// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// KeyHint is one shortcut shown in the status bar.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusBar shows the current screen and key hints along the bottom.
type StatusBar struct {
	Screen  string
	Hints   []KeyHint
	Loading bool
	Width   int
	theme   *styles.Theme
}

// NewStatusBar creates a StatusBar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetScreen sets the screen name on the left.
func (s *StatusBar) SetScreen(name string) {
	s.Screen = name
}

// SetHints replaces the key hints.
func (s *StatusBar) SetHints(hints ...KeyHint) {
	s.Hints = hints
}

// SetLoading toggles the busy marker.
func (s *StatusBar) SetLoading(loading bool) {
	s.Loading = loading
}

// View renders the status bar. Hints that do not fit are dropped from the
// end.
func (s *StatusBar) View() string {
	left := s.Screen
	if s.Loading {
		left += " " + s.theme.Spinner.Render("*")
	}

	avail := s.Width - lipgloss.Width(left) - 4
	var parts []string
	used := 0
	for _, h := range s.Hints {
		part := s.theme.Key.Render(h.Key) + " " + s.theme.KeyDesc.Render(h.Desc)
		w := lipgloss.Width(part) + 2
		if used+w > avail {
			break
		}
		parts = append(parts, part)
		used += w
	}
	right := strings.Join(parts, "  ")

	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}
