// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// =============================================================================
// FORM
// =============================================================================

// FieldSpec describes one text field.
type FieldSpec struct {
	Label       string
	Placeholder string
	Value       string
	Password    bool
	CharLimit   int
}

// Form is a vertical list of text inputs followed by a submit button.
// Focus index len(inputs) is the button.
type Form struct {
	title  string
	submit string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
	busy   bool
}

// NewForm builds a form with the first field focused.
func NewForm(title, submit string, specs ...FieldSpec) *Form {
	f := &Form{title: title, submit: submit}
	for _, s := range specs {
		in := textinput.New()
		in.Placeholder = s.Placeholder
		in.Prompt = ""
		in.CharLimit = 128
		if s.CharLimit > 0 {
			in.CharLimit = s.CharLimit
		}
		if s.Password {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '*'
		}
		in.SetValue(s.Value)
		f.labels = append(f.labels, s.Label)
		f.inputs = append(f.inputs, in)
	}
	f.setFocus(0)
	return f
}

// Value returns the trimmed value of field i. Passwords are not trimmed.
func (f *Form) Value(i int) string {
	if f.inputs[i].EchoMode == textinput.EchoPassword {
		return f.inputs[i].Value()
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

// SetValue replaces the value of field i.
func (f *Form) SetValue(i int, v string) {
	f.inputs[i].SetValue(v)
}

// SetError shows err under the form; "" clears it.
func (f *Form) SetError(err string) {
	f.err = err
}

// Err returns the current error text.
func (f *Form) Err() string {
	return f.err
}

// SetBusy marks the form as submitting; input is ignored while busy.
func (f *Form) SetBusy(busy bool) {
	f.busy = busy
}

// Busy reports whether a submission is in flight.
func (f *Form) Busy() bool {
	return f.busy
}

// Focus returns the focused index.
func (f *Form) Focus() int {
	return f.focus
}

func (f *Form) setFocus(i int) tea.Cmd {
	n := len(f.inputs) + 1
	f.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

// Update handles navigation and typing. submitted is true when enter is
// pressed on the last field or on the button.
func (f *Form) Update(msg tea.Msg, keys KeyMap) (submitted bool, cmd tea.Cmd) {
	if f.busy {
		return false, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Submit):
			if f.focus >= len(f.inputs)-1 {
				return true, nil
			}
			return false, f.setFocus(f.focus + 1)
		case key.Matches(km, keys.NextField):
			return false, f.setFocus(f.focus + 1)
		case key.Matches(km, keys.PrevField):
			return false, f.setFocus(f.focus - 1)
		}
		if f.err != "" && km.Type == tea.KeyRunes {
			f.err = ""
		}
	}
	if f.focus < len(f.inputs) {
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	}
	return false, cmd
}

// View renders the form.
func (f *Form) View(theme *styles.Theme) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(f.title))
	b.WriteString("\n")

	labelWidth := 0
	for _, l := range f.labels {
		if w := lipgloss.Width(l); w > labelWidth {
			labelWidth = w
		}
	}
	for i, in := range f.inputs {
		label := theme.Label
		if i == f.focus {
			label = theme.LabelFocused
		}
		b.WriteString(label.Width(labelWidth + 2).Render(f.labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	button := theme.Button
	if f.focus == len(f.inputs) {
		button = theme.ButtonActive
	}
	text := f.submit
	if f.busy {
		text += "..."
	}
	b.WriteString(button.Render(text))

	if f.err != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.ErrText.Render(f.err))
	}
	return theme.Form.Render(b.String())
}

// yes parses a y/n field.
func yes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
