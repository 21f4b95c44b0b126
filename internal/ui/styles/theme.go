// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	App       lipgloss.Style
	Header    lipgloss.Style
	Brand     lipgloss.Style
	Subtitle  lipgloss.Style
	StatusBar lipgloss.Style
	Key       lipgloss.Style
	KeyDesc   lipgloss.Style

	// ==========================================================================
	// CONTENT
	// ==========================================================================

	Title   lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Spinner lipgloss.Style

	// ==========================================================================
	// FORMS
	// ==========================================================================

	Form         lipgloss.Style
	Label        lipgloss.Style
	LabelFocused lipgloss.Style
	Button       lipgloss.Style
	ButtonActive lipgloss.Style

	// ==========================================================================
	// PROFILE CARDS
	// ==========================================================================

	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardName     lipgloss.Style

	// ==========================================================================
	// NOTICES
	// ==========================================================================

	Banner  lipgloss.Style
	Toast   lipgloss.Style
	ErrText lipgloss.Style
	OkText  lipgloss.Style

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	Overlay lipgloss.Style
	Sidebar lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto"; auto asks
// the terminal for its background.
func NewTheme(mode string) *Theme {
	var isDark bool
	switch strings.ToLower(mode) {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	t.Header = lipgloss.NewStyle().
		Padding(0, 1).
		Background(SurfaceBright).
		Foreground(TextPrimary)
	t.Brand = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Marquee).
		Padding(0, 1)
	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.StatusBar = lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(TextSecondary).
		Background(SurfaceBright)
	t.Key = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.KeyDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Title = lipgloss.NewStyle().Bold(true).Foreground(Marquee).MarginBottom(1)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Marquee)

	t.Form = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)
	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)
	t.LabelFocused = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 2)
	t.ButtonActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Marquee).
		Bold(true).
		Padding(0, 2)

	t.Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Width(16).
		Align(lipgloss.Center).
		Padding(1, 1)
	t.CardSelected = t.Card.
		BorderForeground(Gold).
		Bold(true)
	t.CardName = lipgloss.NewStyle().Foreground(TextPrimary)

	t.Banner = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Amber).
		Foreground(Amber).
		Padding(0, 1)
	t.Toast = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	t.ErrText = lipgloss.NewStyle().Foreground(Rose)
	t.OkText = lipgloss.NewStyle().Foreground(Emerald)

	t.Overlay = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Marquee).
		Padding(1, 2)
	t.Sidebar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(Overlay).
		Padding(0, 1).
		Width(24)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
