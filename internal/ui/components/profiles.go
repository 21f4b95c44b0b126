// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/ui/styles"
	"github.com/jeranaias/marquee-tui/internal/util"
)

// =============================================================================
// PROFILE GRID
// =============================================================================

// ProfileGrid lays profiles out as cards, wrapping to the available width.
// The last cell is the "add profile" card when AddCard is set.
type ProfileGrid struct {
	Profiles []model.Profile
	Cursor   int
	AddCard  bool
	Width    int
	theme    *styles.Theme
}

// NewProfileGrid creates a grid.
func NewProfileGrid(theme *styles.Theme) *ProfileGrid {
	return &ProfileGrid{AddCard: true, Width: 80, theme: theme}
}

// SetProfiles replaces the list and keeps the cursor in range.
func (g *ProfileGrid) SetProfiles(profiles []model.Profile) {
	g.Profiles = profiles
	g.clamp()
}

// Len is the number of selectable cells.
func (g *ProfileGrid) Len() int {
	n := len(g.Profiles)
	if g.AddCard {
		n++
	}
	return n
}

// Move shifts the cursor by delta, wrapping around.
func (g *ProfileGrid) Move(delta int) {
	n := g.Len()
	if n == 0 {
		g.Cursor = 0
		return
	}
	g.Cursor = ((g.Cursor+delta)%n + n) % n
}

// OnAddCard reports whether the cursor is on the add card.
func (g *ProfileGrid) OnAddCard() bool {
	return g.AddCard && g.Cursor == len(g.Profiles)
}

// Selected returns the profile under the cursor.
func (g *ProfileGrid) Selected() (model.Profile, bool) {
	if g.Cursor < 0 || g.Cursor >= len(g.Profiles) {
		return model.Profile{}, false
	}
	return g.Profiles[g.Cursor], true
}

// Columns returns how many cards fit on one row.
func (g *ProfileGrid) Columns() int {
	cardWidth := lipgloss.Width(g.theme.Card.Render("")) + 1
	cols := g.Width / cardWidth
	if cols < 1 {
		cols = 1
	}
	return cols
}

func (g *ProfileGrid) clamp() {
	if n := g.Len(); g.Cursor >= n {
		g.Cursor = n - 1
	}
	if g.Cursor < 0 {
		g.Cursor = 0
	}
}

// View renders the grid.
func (g *ProfileGrid) View() string {
	cells := make([]string, 0, g.Len())
	for i, p := range g.Profiles {
		emoji := p.Emoji
		if emoji == "" {
			emoji = model.DefaultProfileEmoji
		}
		name := util.TruncateWidth(p.Name, 12)
		if p.IsChild {
			name += "\n" + g.theme.Muted.Render("kids")
		}
		cells = append(cells, g.card(i, emoji+"\n\n"+g.theme.CardName.Render(name)))
	}
	if g.AddCard {
		cells = append(cells, g.card(len(g.Profiles), "+\n\n"+g.theme.Muted.Render("Add profile")))
	}

	cols := g.Columns()
	var rows []string
	for start := 0; start < len(cells); start += cols {
		end := start + cols
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells[start:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (g *ProfileGrid) card(i int, content string) string {
	if i == g.Cursor {
		return g.theme.CardSelected.Render(content) + " "
	}
	return g.theme.Card.Render(content) + " "
}
