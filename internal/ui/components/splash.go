// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// =============================================================================
// SPLASH
// =============================================================================

const logo = ` __  __    _    ____   ___  _   _ _____ _____
|  \/  |  / \  |  _ \ / _ \| | | | ____| ____|
| |\/| | / _ \ | |_) | | | | | | |  _| |  _|
| |  | |/ ___ \|  _ <| |_| | |_| | |___| |___
|_|  |_/_/   \_\_| \_\\__\_\\___/|_____|_____|`

const logoCompact = `+-------------+
|   MARQUEE   |
+-------------+`

// Splash renders the intro screen centred in width x height.
func Splash(theme *styles.Theme, version string, width, height int) string {
	art := logo
	switch {
	case width < 30:
		art = "MARQUEE"
	case width < 56:
		art = logoCompact
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Foreground(styles.Marquee).Bold(true).Render(art),
		"",
		theme.Muted.Italic(true).Render("now showing  v"+version),
	)
	if width <= 0 || height <= 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
