// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/ui/styles"
	"github.com/jeranaias/marquee-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar. It shows the brand on the left and the active
// profile on the right.
type Header struct {
	Title   string
	Profile *model.Profile
	Account string
	Width   int
	theme   *styles.Theme
}

// NewHeader creates a Header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "marquee",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetProfile sets the profile shown on the right. nil clears it.
func (h *Header) SetProfile(p *model.Profile) {
	if p == nil {
		h.Profile = nil
		return
	}
	cp := p.Clone()
	h.Profile = &cp
}

// SetAccount sets the account name shown next to the profile.
func (h *Header) SetAccount(name string) {
	h.Account = name
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 30 {
		width = 30
	}

	brand := h.theme.Brand.Render(strings.ToUpper(h.Title))

	var right string
	if h.Profile != nil {
		label := h.Profile.Label()
		if h.Profile.IsAdmin {
			label = h.theme.Key.Render(label)
		}
		right = label
		if h.Account != "" && width >= 60 {
			right = h.theme.Subtitle.Render(util.TruncateWidth(h.Account, 24)+"  ") + right
		}
	}

	gap := width - lipgloss.Width(brand) - lipgloss.Width(right) - 2
	if gap < 1 {
		right = ""
		gap = width - lipgloss.Width(brand) - 2
		if gap < 0 {
			gap = 0
		}
	}

	return h.theme.Header.Width(width).Render(brand + strings.Repeat(" ", gap) + right)
}
