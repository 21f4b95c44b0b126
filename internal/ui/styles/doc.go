// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the marquee TUI.
//
// Colours are lipgloss.AdaptiveColor pairs so one palette serves light and
// dark terminals. NewTheme picks the background from config or asks the
// terminal through termenv.
package styles
