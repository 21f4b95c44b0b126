// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND COLORS
// =============================================================================

// Marquee red, the title card colour.
var Marquee = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

// MarqueeDeep is the darker brand shade for filled backgrounds.
var MarqueeDeep = lipgloss.AdaptiveColor{Light: "#7F1D1D", Dark: "#7F1D1D"}

// Gold highlights the selected card and the admin crown.
var Gold = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// Cyan marks focus.
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE & TEXT COLORS
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111111"}
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#262626"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#404040"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#171717", Dark: "#F5F5F5"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#525252", Dark: "#A3A3A3"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#A3A3A3", Dark: "#737373"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111111"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators for status states so status
// is never conveyed by colour alone.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators are ASCII-only for maximum compatibility.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Cyan).Bold(true).
		Render(StatusIndicators.Info + " " + message)
}
