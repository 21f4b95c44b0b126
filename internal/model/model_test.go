// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestAdminProfile(t *testing.T) {
	p := AdminProfile()
	require.Equal(t, "Admin", p.Name)
	require.Equal(t, "👑", p.Emoji)
	require.True(t, p.IsAdmin)
	require.Equal(t, AdminProfileID, p.ID)
}

func TestProfile_DecodeIdentityServicePayload(t *testing.T) {
	// Shape produced by GET /user/profiles, including the HTTP-date timestamp.
	payload := `[
		{"name":"Sam","profile_emoji":"🙂","is_child":false,"is_default":true,
		 "created_at":"Mon, 06 Jan 2025 10:00:00 GMT",
		 "preferred_genres":["Drama"],"preferred_languages":[],"watchlist":[603]},
		{"name":"Kid","profile_emoji":"🧸","is_child":true,"is_default":false,"created_at":null}
	]`

	var profiles []Profile
	require.NoError(t, json.Unmarshal([]byte(payload), &profiles))
	require.Len(t, profiles, 2)

	require.Equal(t, "Sam", profiles[0].Name)
	require.Equal(t, []string{"Drama"}, profiles[0].PreferredGenres)
	require.Equal(t, []int{603}, profiles[0].Watchlist)
	require.Equal(t, time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC), profiles[0].CreatedAt.Time)
	require.True(t, profiles[1].IsChild)
	require.True(t, profiles[1].CreatedAt.IsZero())
	require.Empty(t, profiles[0].ID, "identity service does not send ids")
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	var ts Timestamp
	require.Error(t, json.Unmarshal([]byte(`"yesterday-ish"`), &ts))
	require.Error(t, json.Unmarshal([]byte(`42`), &ts))
}

func TestTimestamp_ZeroEncodesNull(t *testing.T) {
	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	require.Equal(t, "null", string(data))
}

func TestAssignIDs_KeepsExisting(t *testing.T) {
	profiles := AssignIDs([]Profile{{ID: "keep", Name: "A"}, {Name: "B"}, {Name: "C"}})
	require.Equal(t, "keep", profiles[0].ID)
	require.NotEmpty(t, profiles[1].ID)
	require.NotEmpty(t, profiles[2].ID)
	require.NotEqual(t, profiles[1].ID, profiles[2].ID)
	require.Equal(t, 2, IndexOf(profiles, profiles[2].ID))
	require.Equal(t, -1, IndexOf(profiles, "missing"))
}

func TestProfile_CloneIsDeep(t *testing.T) {
	orig := Profile{Name: "A", PreferredGenres: []string{"Drama"}, Watchlist: []int{1}}
	cp := orig.Clone()
	cp.PreferredGenres[0] = "Horror"
	cp.Watchlist[0] = 2
	require.Equal(t, "Drama", orig.PreferredGenres[0])
	require.Equal(t, 1, orig.Watchlist[0])

	require.Nil(t, CloneProfiles(nil))
	require.Nil(t, Profile{}.Clone().PreferredGenres)

	empty := Profile{PreferredGenres: []string{}, Watchlist: []int{}}.Clone()
	require.NotNil(t, empty.PreferredGenres, "an emptied list stays empty, not unset")
	require.NotNil(t, empty.Watchlist)
}

func TestSameName(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Sam", "sam", true},
		{"  Sam ", "SAM", true},
		{"Zoé", "Zoé", true}, // decomposed vs precomposed
		{"Sam", "Sammy", false},
	}
	for _, tt := range tests {
		if got := SameName(tt.a, tt.b); got != tt.want {
			t.Errorf("SameName(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// PATCH TESTS
// =============================================================================

func TestProfilePatch_Apply(t *testing.T) {
	base := Profile{ID: "p1", Name: "A", Emoji: "🙂", PreferredGenres: []string{"Drama"}}

	out := ProfilePatch{Emoji: String("🎬"), IsChild: Bool(true)}.Apply(base)
	require.Equal(t, "p1", out.ID)
	require.Equal(t, "A", out.Name)
	require.Equal(t, "🎬", out.Emoji)
	require.True(t, out.IsChild)
	require.Equal(t, []string{"Drama"}, out.PreferredGenres)
	require.Equal(t, "🙂", base.Emoji, "apply must not mutate its input")

	cleared := ProfilePatch{PreferredGenres: []string{}, PreferredLanguages: []string{}, Watchlist: []int{}}.Apply(base)
	require.NotNil(t, cleared.PreferredGenres)
	require.Empty(t, cleared.PreferredGenres)
	require.NotNil(t, cleared.PreferredLanguages)
	require.NotNil(t, cleared.Watchlist)
	require.Empty(t, cleared.Watchlist)

	genres := []string{"Comedy"}
	replaced := ProfilePatch{PreferredGenres: genres}.Apply(base)
	genres[0] = "Horror"
	require.Equal(t, []string{"Comedy"}, replaced.PreferredGenres, "apply copies patch slices")
}

func TestProfilePatch_IsEmpty(t *testing.T) {
	require.True(t, ProfilePatch{}.IsEmpty())
	require.False(t, ProfilePatch{Name: String("x")}.IsEmpty())
	require.False(t, ProfilePatch{Watchlist: []int{}}.IsEmpty())
}

func TestAccount_DisplayName(t *testing.T) {
	require.Equal(t, "Sam", Account{Name: "Sam", Email: "s@x.io"}.DisplayName())
	require.Equal(t, "s@x.io", Account{Email: "s@x.io"}.DisplayName())
	require.Equal(t, "unknown account", Account{}.DisplayName())
}
