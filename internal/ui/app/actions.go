// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/marquee-tui/internal/identity"
	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/session"
)

// =============================================================================
// FORMS
// =============================================================================

const (
	loginEmail = iota
	loginPassword
)

const (
	registerName = iota
	registerEmail
	registerPassword
	registerConfirm
	registerEmoji
	registerKids
	registerTerms
)

const (
	profileName = iota
	profileEmoji
	profileKids
)

const (
	settingsName = iota
	settingsEmoji
	settingsPassword
	settingsConfirm
)

func newLoginForm() *Form {
	return NewForm("Log in to Marquee", "Log in",
		FieldSpec{Label: "Email", Placeholder: "you@example.com"},
		FieldSpec{Label: "Password", Password: true},
	)
}

func newRegisterForm() *Form {
	return NewForm("Create an account", "Register",
		FieldSpec{Label: "Name", Placeholder: "Your name", CharLimit: 64},
		FieldSpec{Label: "Email", Placeholder: "you@example.com"},
		FieldSpec{Label: "Password", Password: true},
		FieldSpec{Label: "Confirm", Password: true},
		FieldSpec{Label: "Emoji", Placeholder: model.DefaultProfileEmoji, CharLimit: 8},
		FieldSpec{Label: "Kids profile", Placeholder: "y/n", CharLimit: 3},
		FieldSpec{Label: "Accept terms", Placeholder: "y/n", CharLimit: 3},
	)
}

func newCreateForm() *Form {
	return NewForm("New profile", "Create",
		FieldSpec{Label: "Name", Placeholder: "Profile name", CharLimit: 64},
		FieldSpec{Label: "Emoji", Placeholder: model.DefaultProfileEmoji, CharLimit: 8},
		FieldSpec{Label: "Kids profile", Placeholder: "y/n", CharLimit: 3},
	)
}

func newSettingsForm(p *model.Profile) *Form {
	var name, emoji string
	if p != nil {
		name, emoji = p.Name, p.Emoji
	}
	return NewForm("Edit profile", "Save",
		FieldSpec{Label: "Name", Value: name, CharLimit: 64},
		FieldSpec{Label: "Emoji", Value: emoji, CharLimit: 8},
		FieldSpec{Label: "New password", Placeholder: "leave empty to keep", Password: true},
		FieldSpec{Label: "Confirm", Password: true},
	)
}

func (m *Model) resetForms() {
	m.loginForm = newLoginForm()
	m.registerForm = newRegisterForm()
	m.createForm = newCreateForm()
	m.settingsForm = newSettingsForm(nil)
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

// submitLogin authenticates with the identity service and hands the
// credential to the session controller.
func (m Model) submitLogin() tea.Cmd {
	f := m.loginForm
	email, password := f.Value(loginEmail), f.Value(loginPassword)
	if email == "" || password == "" {
		f.SetError("Email and password are required")
		return nil
	}
	f.SetError("")
	f.SetBusy(true)

	ctx, ctrl, id := m.ctx, m.ctrl, m.id
	return func() tea.Msg {
		res, err := id.Login(ctx, email, password)
		if err != nil {
			return authFailedMsg{Err: err}
		}
		return session.ResultMsg{Op: session.OpLogin, Err: ctrl.Login(ctx, res.Credential, res.Account)}
	}
}

// submitRegister creates an account and logs it in. Registration does not
// return the account, so it is fetched with the new credential.
func (m Model) submitRegister() tea.Cmd {
	f := m.registerForm
	req := identity.RegisterRequest{
		Name:          f.Value(registerName),
		Email:         f.Value(registerEmail),
		Password:      f.Value(registerPassword),
		Emoji:         f.Value(registerEmoji),
		IsChild:       yes(f.Value(registerKids)),
		AcceptedTerms: yes(f.Value(registerTerms)),
	}
	switch {
	case req.Name == "" || req.Email == "":
		f.SetError("Name and email are required")
		return nil
	case len(req.Password) < identity.MinPasswordLength:
		f.SetError(fmt.Sprintf("Password must be at least %d characters", identity.MinPasswordLength))
		return nil
	case req.Password != f.Value(registerConfirm):
		f.SetError("Passwords do not match")
		return nil
	case !req.AcceptedTerms:
		f.SetError("You must accept the terms to register")
		return nil
	}
	f.SetError("")
	f.SetBusy(true)

	ctx, ctrl, id := m.ctx, m.ctrl, m.id
	return func() tea.Msg {
		res, err := id.Register(ctx, req)
		if err != nil {
			return authFailedMsg{Register: true, Err: err}
		}
		account, err := id.CurrentAccount(ctx, res.Credential)
		if err != nil {
			return authFailedMsg{Register: true, Err: fmt.Errorf("account created but could not be loaded, please log in: %w", err)}
		}
		return session.ResultMsg{Op: session.OpLogin, Err: ctrl.Login(ctx, res.Credential, account)}
	}
}

// submitCreate adds a profile on the service and then to the session.
// Name collisions are caught before the service is called.
func (m Model) submitCreate() tea.Cmd {
	f := m.createForm
	in := identity.ProfileInput{
		Name:    model.NormalizeName(f.Value(profileName)),
		Emoji:   f.Value(profileEmoji),
		IsChild: yes(f.Value(profileKids)),
	}
	if in.Name == "" {
		f.SetError("Profile name is required")
		return nil
	}
	for _, p := range m.snap.Profiles() {
		if model.SameName(p.Name, in.Name) {
			f.SetError(fmt.Sprintf("A profile named %q already exists", p.Name))
			return nil
		}
	}
	if in.Emoji == "" {
		in.Emoji = model.DefaultProfileEmoji
	}
	f.SetError("")
	f.SetBusy(true)

	ctx, ctrl, id := m.ctx, m.ctrl, m.id
	return func() tea.Msg {
		credential, err := ctrl.Credential(ctx)
		if err != nil {
			return profileCreatedMsg{Err: fmt.Errorf("read credential: %w", err)}
		}
		p, err := id.CreateProfile(ctx, credential, in)
		if err != nil {
			return profileCreatedMsg{Err: err}
		}
		if p.Name == "" {
			p.Name, p.Emoji, p.IsChild = in.Name, in.Emoji, in.IsChild
		}
		created, err := ctrl.CreateProfile(p)
		return profileCreatedMsg{Profile: created, Err: err}
	}
}

// submitSettings saves name and emoji changes and an optional new
// password. The service addresses profiles by list position.
func (m Model) submitSettings() tea.Cmd {
	f := m.settingsForm
	cur := m.snap.SelectedProfile()
	if cur == nil {
		f.SetError("No profile selected")
		return nil
	}
	name := model.NormalizeName(f.Value(settingsName))
	emoji := f.Value(settingsEmoji)
	password := f.Value(settingsPassword)

	switch {
	case name == "":
		f.SetError("Profile name is required")
		return nil
	case emoji == "":
		f.SetError("Emoji is required")
		return nil
	case password != "" && len(password) < identity.MinPasswordLength:
		f.SetError(fmt.Sprintf("Password must be at least %d characters", identity.MinPasswordLength))
		return nil
	case password != f.Value(settingsConfirm):
		f.SetError("Passwords do not match")
		return nil
	}
	profiles := m.snap.Profiles()
	for _, p := range profiles {
		if p.ID != cur.ID && model.SameName(p.Name, name) {
			f.SetError(fmt.Sprintf("A profile named %q already exists", p.Name))
			return nil
		}
	}

	var patch model.ProfilePatch
	if name != cur.Name {
		patch.Name = model.String(name)
	}
	if emoji != cur.Emoji {
		patch.Emoji = model.String(emoji)
	}
	if patch.IsEmpty() && password == "" {
		f.SetError("Nothing to save")
		return nil
	}
	index := model.IndexOf(profiles, cur.ID)
	f.SetError("")
	f.SetBusy(true)

	ctx, ctrl, id := m.ctx, m.ctrl, m.id
	return func() tea.Msg {
		credential, err := ctrl.Credential(ctx)
		if err != nil {
			return profileSavedMsg{Err: fmt.Errorf("read credential: %w", err)}
		}
		var saved model.Profile
		if !patch.IsEmpty() {
			if index < 0 {
				return profileSavedMsg{Err: errors.New("selected profile is not in the account's profile list")}
			}
			if err := id.UpdateProfile(ctx, credential, index, name, emoji); err != nil {
				return profileSavedMsg{Err: err}
			}
			if saved, err = ctrl.UpdateProfile(patch); err != nil {
				return profileSavedMsg{Err: err}
			}
		}
		if password != "" {
			if err := id.ResetPassword(ctx, credential, password); err != nil {
				return profileSavedMsg{Profile: saved, Err: fmt.Errorf("profile saved, password not changed: %w", err)}
			}
		}
		return profileSavedMsg{Profile: saved, PasswordChanged: password != ""}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return logoutDoneMsg{Err: ctrl.Logout(ctx)}
	}
}
