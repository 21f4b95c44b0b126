// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/ui/components"
	"github.com/jeranaias/marquee-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m Model) View() string {
	screen := m.Screen()
	if screen == ScreenSplash {
		return components.Splash(m.theme, m.version, m.width, m.height)
	}

	var body string
	switch screen {
	case ScreenLoading:
		body = m.viewLoading()
	case ScreenLogin:
		body = m.viewAuth(m.loginForm, "No account yet? Press ctrl+n to register.")
	case ScreenRegister:
		body = m.viewAuth(m.registerForm, "Already registered? Press esc to log in.")
	case ScreenProfiles:
		body = m.viewPicker("Who's watching?")
	case ScreenSwitchProfile:
		body = m.viewPicker("Switch profile")
	case ScreenCreateProfile:
		body = m.center(m.createForm.View(m.theme))
	case ScreenHome:
		body = m.viewHome()
	case ScreenSettings:
		body = m.center(m.settingsForm.View(m.theme))
	}

	header := m.header.View()
	status := m.status.View()
	toasts := m.toasts.View(m.theme, m.width)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status)
	if toasts != "" {
		bodyHeight -= lipgloss.Height(toasts)
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body = lipgloss.NewStyle().Width(m.width).Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	parts := []string{header, body}
	if toasts != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toasts))
	}
	parts = append(parts, status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) center(content string) string {
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, content)
}

func (m Model) viewLoading() string {
	return lipgloss.Place(m.width, max(m.height-4, 3), lipgloss.Center, lipgloss.Center, m.spinner.View())
}

// banner renders the profile failure notice, if any.
func (m Model) banner() string {
	if m.snap.ProfileErr == nil {
		return ""
	}
	text := fmt.Sprintf("Could not load your profiles: %s. Press ctrl+r to retry.", describe(m.snap.ProfileErr))
	return m.theme.Banner.Width(min(m.width-4, 72)).Render(text)
}

func (m Model) viewAuth(form *Form, footer string) string {
	parts := []string{}
	if b := m.banner(); b != "" {
		parts = append(parts, b, "")
	}
	parts = append(parts, form.View(m.theme), "", m.theme.Muted.Render(footer))
	return m.center(lipgloss.JoinVertical(lipgloss.Center, parts...))
}

func (m Model) viewPicker(title string) string {
	parts := []string{m.theme.Title.Render(title), ""}
	if b := m.banner(); b != "" {
		parts = append(parts, b, "")
	}
	if len(m.grid.Profiles) == 0 && m.snap.ProfileErr == nil && m.Screen() == ScreenProfiles {
		parts = append(parts, m.theme.Muted.Render("No profiles yet. Create one to get started."), "")
	}
	parts = append(parts, m.grid.View())
	return m.center(lipgloss.JoinVertical(lipgloss.Center, parts...))
}

func (m Model) viewHome() string {
	var main string
	if m.snap.InfoOpen {
		main = m.theme.Overlay.Render(m.info.Render(m.snap, m.version, m.keys, m.width))
		main = m.center(main)
	} else {
		main = m.viewCatalog()
	}
	if !m.snap.SidebarOpen {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), main)
}

func (m Model) viewCatalog() string {
	var b strings.Builder
	prof := m.snap.SelectedProfile()
	if prof != nil {
		b.WriteString(m.theme.Title.Render("Welcome, " + prof.Name))
		b.WriteString("\n\n")
	}
	if m.snap.IsAdmin() {
		b.WriteString(m.theme.Body.Render("Signed in as administrator. Profile management is disabled for this session."))
	} else {
		b.WriteString(m.theme.Body.Render("Your catalog will appear here."))
		if prof != nil && prof.IsChild {
			b.WriteString("\n")
			b.WriteString(m.theme.Muted.Render("Kids profile: only family titles are shown."))
		}
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) viewSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Account"))
	b.WriteString("\n")
	if account, ok := m.snap.Account(); ok {
		b.WriteString(m.theme.Body.Render(util.TruncateWidth(account.DisplayName(), 20)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Title.Render("Profiles"))
	b.WriteString("\n")

	selected := m.selectedID()
	profiles := m.snap.Profiles()
	if len(profiles) == 0 {
		b.WriteString(m.theme.Muted.Render("none"))
	}
	for _, p := range profiles {
		line := util.TruncateWidth(p.Label(), 20)
		if p.ID == selected {
			b.WriteString(m.theme.OkText.Render("> " + line))
		} else {
			b.WriteString(m.theme.Muted.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return m.theme.Sidebar.Render(b.String())
}
