// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Account is the identity service's view of the logged-in account.
// Only IsAdmin drives session decisions; the rest is display context.
type Account struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	Emoji    string    `json:"profile_emoji,omitempty"`
	IsChild  bool      `json:"is_child,omitempty"`
	IsAdmin  bool      `json:"is_admin"`
	Profiles []Profile `json:"profiles,omitempty"`
}

// DisplayName returns the best available label for the account.
func (a Account) DisplayName() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return a.Email
	case a.ID != "":
		return a.ID
	default:
		return "unknown account"
	}
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	out := a
	out.Profiles = CloneProfiles(a.Profiles)
	return out
}
