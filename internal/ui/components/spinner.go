// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a loading indicator with a message and an elapsed timer.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	isActive  bool
	theme     *styles.Theme
}

// NewSpinner creates an ASCII-compatible spinner.
func NewSpinner(theme *styles.Theme, message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner
	return Spinner{spinner: s, message: message, theme: theme}
}

// SetMessage changes the text after the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Start activates the spinner and returns the first tick.
func (s *Spinner) Start() tea.Cmd {
	if !s.isActive {
		s.isActive = true
		s.startTime = time.Now()
	}
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// Update handles tick messages.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}
	out := s.spinner.View() + " " + s.theme.Body.Render(s.message+"...")
	if elapsed := time.Since(s.startTime); elapsed >= time.Second {
		out += s.theme.Muted.Render(" (" + formatElapsed(elapsed) + ")")
	}
	return out
}

// formatElapsed renders 4s or 1m05s.
func formatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
