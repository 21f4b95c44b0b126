// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	"github.com/peterh/liner"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted")

// Prompter reads interactive input.
type Prompter interface {
	Prompt(label string) (string, error)
	Password(label string) (string, error)
	Close() error
}

// LinerPrompter prompts on the terminal with line editing.
type LinerPrompter struct {
	line *liner.State
}

// NewLinerPrompter puts the terminal under liner control until Close.
func NewLinerPrompter() *LinerPrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &LinerPrompter{line: line}
}

// Prompt reads a line.
func (p *LinerPrompter) Prompt(label string) (string, error) {
	s, err := p.line.Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return s, err
}

// Password reads a line without echo.
func (p *LinerPrompter) Password(label string) (string, error) {
	s, err := p.line.PasswordPrompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return s, err
}

// Close restores the terminal.
func (p *LinerPrompter) Close() error {
	return p.line.Close()
}
