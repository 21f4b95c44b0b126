// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings. Bindings used on form screens are
// control chords so they never collide with typed text.
type KeyMap struct {
	Quit       key.Binding
	Back       key.Binding
	Submit     key.Binding
	NextField  key.Binding
	PrevField  key.Binding
	SwitchForm key.Binding
	Retry      key.Binding
	Logout     key.Binding

	Left  key.Binding
	Right key.Binding
	Up    key.Binding
	Down  key.Binding

	NewProfile    key.Binding
	SwitchProfile key.Binding
	Settings      key.Binding
	Info          key.Binding
	Sidebar       key.Binding
	Dismiss       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("S-tab", "prev"),
		),
		SwitchForm: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "login/register"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "retry"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "log out"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		NewProfile: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new profile"),
		),
		SwitchProfile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "switch profile"),
		),
		Settings: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit profile"),
		),
		Info: key.NewBinding(
			key.WithKeys("i", "?"),
			key.WithHelp("i", "info"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "sidebar"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "dismiss"),
		),
	}
}

// hint converts a binding to a status bar hint.
func hint(b key.Binding) (string, string) {
	h := b.Help()
	return h.Key, h.Desc
}
