// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"

	"github.com/jeranaias/marquee-tui/internal/model"
)

// =============================================================================
// PHASES
// =============================================================================

// Phase is one of Unauthenticated, AwaitingProfile or Active.
type Phase interface {
	isPhase()
	clone() Phase
}

// Unauthenticated is the phase without a usable credential.
type Unauthenticated struct{}

// AwaitingProfile is an authenticated non-admin account that has not chosen
// a profile.
type AwaitingProfile struct {
	Account  model.Account
	Profiles []model.Profile
}

// Active is a session with a chosen profile. For administrators Profile is
// model.AdminProfile() and Profiles is empty.
type Active struct {
	Account  model.Account
	Profile  model.Profile
	Profiles []model.Profile
}

func (Unauthenticated) isPhase() {}
func (AwaitingProfile) isPhase() {}
func (Active) isPhase()          {}

func (p Unauthenticated) clone() Phase { return p }

func (p AwaitingProfile) clone() Phase {
	return AwaitingProfile{Account: p.Account.Clone(), Profiles: model.CloneProfiles(p.Profiles)}
}

func (p Active) clone() Phase {
	return Active{Account: p.Account.Clone(), Profile: p.Profile.Clone(), Profiles: model.CloneProfiles(p.Profiles)}
}

// adminPhase is the one shape an administrator session can take.
func adminPhase(account model.Account) Active {
	return Active{Account: account.Clone(), Profile: model.AdminProfile(), Profiles: []model.Profile{}}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable copy of session state.
type Snapshot struct {
	Phase Phase

	// Loading is true while a restore or profile fetch is in flight.
	Loading bool

	// ProfileErr is set when the last profile fetch failed. It wraps
	// ErrProfileFetch and clears on a successful fetch, login or logout.
	ProfileErr error

	SidebarOpen bool
	InfoOpen    bool

	// Version increases with every state change.
	Version uint64
}

func initialSnapshot() Snapshot {
	return Snapshot{Phase: Unauthenticated{}, Loading: true}
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Phase == nil {
		out.Phase = Unauthenticated{}
	} else {
		out.Phase = s.Phase.clone()
	}
	return out
}

// IsAuthenticated reports whether the session holds a validated account.
func (s Snapshot) IsAuthenticated() bool {
	switch s.Phase.(type) {
	case AwaitingProfile, Active:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the session is an administrator session.
func (s Snapshot) IsAdmin() bool {
	a, ok := s.Phase.(Active)
	return ok && a.Profile.IsAdmin
}

// SelectedProfile returns the active profile, or nil.
func (s Snapshot) SelectedProfile() *model.Profile {
	a, ok := s.Phase.(Active)
	if !ok {
		return nil
	}
	p := a.Profile.Clone()
	return &p
}

// Profiles returns the selectable profiles. It is empty for administrators
// and unauthenticated sessions.
func (s Snapshot) Profiles() []model.Profile {
	switch p := s.Phase.(type) {
	case AwaitingProfile:
		return model.CloneProfiles(p.Profiles)
	case Active:
		if p.Profiles == nil {
			return []model.Profile{}
		}
		return model.CloneProfiles(p.Profiles)
	default:
		return []model.Profile{}
	}
}

// Account returns the authenticated account.
func (s Snapshot) Account() (model.Account, bool) {
	switch p := s.Phase.(type) {
	case AwaitingProfile:
		return p.Account.Clone(), true
	case Active:
		return p.Account.Clone(), true
	default:
		return model.Account{}, false
	}
}

// Mode is shorthand for Project(s).
func (s Snapshot) Mode() Mode {
	return Project(s)
}

// =============================================================================
// VIEW PROJECTION
// =============================================================================

// Mode is the screen family a session may see.
type Mode int

const (
	// ModeUnauthenticated shows only login and registration.
	ModeUnauthenticated Mode = iota

	// ModeProfileSelection shows the profile picker.
	ModeProfileSelection

	// ModeMainApplication shows the catalog screens.
	ModeMainApplication
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeUnauthenticated:
		return "unauthenticated"
	case ModeProfileSelection:
		return "profile_selection"
	case ModeMainApplication:
		return "main_application"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Project maps a snapshot to the mode the user is entitled to see. It is
// pure and must be re-evaluated for every snapshot.
func Project(s Snapshot) Mode {
	switch {
	case !s.IsAuthenticated():
		return ModeUnauthenticated
	case s.IsAdmin() || s.SelectedProfile() != nil:
		return ModeMainApplication
	default:
		return ModeProfileSelection
	}
}
