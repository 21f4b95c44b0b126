// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// init picks the lipgloss color profile from the terminal, NO_COLOR and
// FORCE_COLOR.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Marquee)

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Width(14)

	// ValueStyle is used for values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for hints and secondary text.
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// RenderField renders "label  value" on one line.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

// RenderSeparator renders a horizontal rule.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return DimStyle.Render(strings.Repeat("-", width))
}
