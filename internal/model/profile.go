// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// PROFILE
// =============================================================================

const (
	// AdminProfileID is the fixed ID of the synthesised administrator profile.
	AdminProfileID = "admin"

	// AdminProfileName is the display name of the administrator profile.
	AdminProfileName = "Admin"

	// AdminProfileEmoji is the emoji of the administrator profile.
	AdminProfileEmoji = "👑"

	// DefaultProfileEmoji is used when a profile is created without one.
	DefaultProfileEmoji = "👤"
)

// Profile is a named persona under one account.
type Profile struct {
	ID                 string    `json:"id,omitempty"`
	Name               string    `json:"name"`
	Emoji              string    `json:"profile_emoji"`
	IsAdmin            bool      `json:"is_admin,omitempty"`
	IsChild            bool      `json:"is_child"`
	IsDefault          bool      `json:"is_default"`
	PreferredGenres    []string  `json:"preferred_genres,omitempty"`
	PreferredLanguages []string  `json:"preferred_languages,omitempty"`
	Watchlist          []int     `json:"watchlist,omitempty"`
	CreatedAt          Timestamp `json:"created_at"`
}

// AdminProfile returns the implicit profile of an administrator account.
// It is never persisted and never appears in a profile list.
func AdminProfile() Profile {
	return Profile{
		ID:      AdminProfileID,
		Name:    AdminProfileName,
		Emoji:   AdminProfileEmoji,
		IsAdmin: true,
	}
}

// NewProfileID returns a fresh unique profile identifier.
func NewProfileID() string {
	return uuid.NewString()
}

// Label returns "emoji name" for display.
func (p Profile) Label() string {
	emoji := p.Emoji
	if emoji == "" {
		emoji = DefaultProfileEmoji
	}
	return emoji + " " + p.Name
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.PreferredGenres = cloneStrings(p.PreferredGenres)
	out.PreferredLanguages = cloneStrings(p.PreferredLanguages)
	if p.Watchlist != nil {
		out.Watchlist = append(make([]int, 0, len(p.Watchlist)), p.Watchlist...)
	}
	return out
}

// CloneProfiles deep-copies a profile list. A nil list stays nil.
func CloneProfiles(in []Profile) []Profile {
	if in == nil {
		return nil
	}
	out := make([]Profile, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// AssignIDs gives every profile without an ID a fresh one. The identity
// service does not model profile IDs, so IDs are assigned client-side when a
// list is loaded and stay stable for the lifetime of that list.
func AssignIDs(profiles []Profile) []Profile {
	for i := range profiles {
		if profiles[i].ID == "" {
			profiles[i].ID = NewProfileID()
		}
	}
	return profiles
}

// IndexOf returns the position of the profile with the given ID, or -1.
func IndexOf(profiles []Profile, id string) int {
	for i, p := range profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// cloneStrings keeps the nil / empty distinction: empty means cleared.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// =============================================================================
// NAME NORMALISATION
// =============================================================================

// NormalizeName trims surrounding space and puts the name in NFC so that
// visually identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// SameName reports whether two profile names collide within an account.
// Comparison is case-insensitive after normalisation.
func SameName(a, b string) bool {
	return cases.Fold().String(NormalizeName(a)) == cases.Fold().String(NormalizeName(b))
}

// =============================================================================
// PROFILE PATCH
// =============================================================================

// ProfilePatch is a partial profile update. Nil fields are left unchanged;
// a non-nil empty slice clears the corresponding list. ID and IsAdmin are
// not patchable.
type ProfilePatch struct {
	Name               *string
	Emoji              *string
	IsChild            *bool
	PreferredGenres    []string
	PreferredLanguages []string
	Watchlist          []int
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }

// IsEmpty reports whether the patch changes nothing.
func (pp ProfilePatch) IsEmpty() bool {
	return pp.Name == nil && pp.Emoji == nil && pp.IsChild == nil &&
		pp.PreferredGenres == nil && pp.PreferredLanguages == nil && pp.Watchlist == nil
}

// Apply returns a copy of p with the patch merged in.
func (pp ProfilePatch) Apply(p Profile) Profile {
	out := p.Clone()
	if pp.Name != nil {
		out.Name = NormalizeName(*pp.Name)
	}
	if pp.Emoji != nil {
		out.Emoji = *pp.Emoji
	}
	if pp.IsChild != nil {
		out.IsChild = *pp.IsChild
	}
	if pp.PreferredGenres != nil {
		out.PreferredGenres = cloneStrings(pp.PreferredGenres)
	}
	if pp.PreferredLanguages != nil {
		out.PreferredLanguages = cloneStrings(pp.PreferredLanguages)
	}
	if pp.Watchlist != nil {
		out.Watchlist = append([]int{}, pp.Watchlist...)
	}
	return out
}
