// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/marquee-tui/internal/session"
	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// infoPanel renders the session overview as markdown.
type infoPanel struct {
	theme    *styles.Theme
	renderer *glamour.TermRenderer
	wrap     int
}

func newInfoPanel(theme *styles.Theme) *infoPanel {
	return &infoPanel{theme: theme}
}

// Markdown builds the panel source for a snapshot.
func (p *infoPanel) Markdown(s session.Snapshot, version string, keys KeyMap) string {
	var b strings.Builder
	b.WriteString("# Marquee\n\n")
	fmt.Fprintf(&b, "Version `%s`\n\n", version)

	b.WriteString("## Session\n\n")
	if account, ok := s.Account(); ok {
		fmt.Fprintf(&b, "- **Account:** %s\n", account.DisplayName())
		if account.Email != "" {
			fmt.Fprintf(&b, "- **Email:** %s\n", account.Email)
		}
	}
	if prof := s.SelectedProfile(); prof != nil {
		fmt.Fprintf(&b, "- **Profile:** %s\n", prof.Label())
		if prof.IsChild {
			b.WriteString("- **Kids profile:** yes\n")
		}
	}
	if s.IsAdmin() {
		b.WriteString("- **Role:** administrator\n")
	} else {
		fmt.Fprintf(&b, "- **Profiles on account:** %d\n", len(s.Profiles()))
	}

	b.WriteString("\n## Keys\n\n")
	for _, k := range []struct{ key, desc string }{
		{keys.SwitchProfile.Help().Key, keys.SwitchProfile.Help().Desc},
		{keys.Settings.Help().Key, keys.Settings.Help().Desc},
		{keys.Sidebar.Help().Key, keys.Sidebar.Help().Desc},
		{keys.Logout.Help().Key, keys.Logout.Help().Desc},
		{keys.Quit.Help().Key, keys.Quit.Help().Desc},
	} {
		fmt.Fprintf(&b, "- `%s` %s\n", k.key, k.desc)
	}
	return b.String()
}

// Render returns the panel for the given width. The renderer is rebuilt
// only when the width changes.
func (p *infoPanel) Render(s session.Snapshot, version string, keys KeyMap, width int) string {
	src := p.Markdown(s, version, keys)
	wrap := width - 8
	if wrap < 20 {
		wrap = 20
	}
	if p.renderer == nil || p.wrap != wrap {
		style := "light"
		if p.theme.IsDark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return src
		}
		p.renderer, p.wrap = r, wrap
	}
	out, err := p.renderer.Render(src)
	if err != nil {
		return src
	}
	return strings.Trim(out, "\n")
}
