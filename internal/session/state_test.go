// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jeranaias/marquee-tui/internal/model"
)

func TestProject(t *testing.T) {
	kid := model.Profile{ID: "p2", Name: "Kid"}
	listed := []model.Profile{{ID: "p1", Name: "Sam"}, kid}

	tests := []struct {
		name string
		snap Snapshot
		want Mode
	}{
		{"zero value", Snapshot{}, ModeUnauthenticated},
		{"initial", initialSnapshot(), ModeUnauthenticated},
		{"logged out with ui flags", Snapshot{Phase: Unauthenticated{}, SidebarOpen: true}, ModeUnauthenticated},
		{"awaiting profile", Snapshot{Phase: AwaitingProfile{Profiles: listed}}, ModeProfileSelection},
		{"awaiting profile with no profiles", Snapshot{Phase: AwaitingProfile{}}, ModeProfileSelection},
		{"awaiting profile while loading", Snapshot{Phase: AwaitingProfile{}, Loading: true}, ModeProfileSelection},
		{"active profile", Snapshot{Phase: Active{Profile: kid, Profiles: listed}}, ModeMainApplication},
		{"administrator", Snapshot{Phase: adminPhase(model.Account{IsAdmin: true})}, ModeMainApplication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Project(tt.snap))
			require.Equal(t, tt.want, tt.snap.Mode())
		})
	}
}

func TestMode_String(t *testing.T) {
	require.Equal(t, "unauthenticated", ModeUnauthenticated.String())
	require.Equal(t, "profile_selection", ModeProfileSelection.String())
	require.Equal(t, "main_application", ModeMainApplication.String())
	require.Equal(t, "mode(9)", Mode(9).String())
}

func TestSnapshot_Accessors(t *testing.T) {
	var zero Snapshot
	require.False(t, zero.IsAuthenticated())
	require.False(t, zero.IsAdmin())
	require.Nil(t, zero.SelectedProfile())
	require.NotNil(t, zero.Profiles())
	_, ok := zero.Account()
	require.False(t, ok)

	admin := Snapshot{Phase: adminPhase(model.Account{Name: "Root", IsAdmin: true})}
	require.True(t, admin.IsAuthenticated())
	require.True(t, admin.IsAdmin())
	require.NotNil(t, admin.Profiles())
	require.Empty(t, admin.Profiles())
	account, ok := admin.Account()
	require.True(t, ok)
	require.Equal(t, "Root", account.Name)

	// A non-admin profile never makes the session admin.
	active := Snapshot{Phase: Active{Profile: model.Profile{ID: "p1", Name: "Sam"}}}
	require.False(t, active.IsAdmin())
	require.NotNil(t, active.Profiles())
}

// =============================================================================
// BUBBLE TEA COMMANDS
// =============================================================================

func TestWaitForState(t *testing.T) {
	ch := make(chan Snapshot, 1)
	ch <- Snapshot{Phase: Unauthenticated{}, Version: 7}

	msg := WaitForState(ch)()
	sm, ok := msg.(StateMsg)
	require.True(t, ok)
	require.Equal(t, uint64(7), sm.Snapshot.Version)

	close(ch)
	require.Nil(t, WaitForState(ch)())
}

func TestCommands(t *testing.T) {
	c := New(nil, NewMockIdentity(gomock.NewController(t)))
	ctx := context.Background()

	require.Equal(t, ResultMsg{Op: OpRetryProfiles, Err: ErrNothingToRetry}, RetryProfilesCmd(ctx, c)())

	msg := LoginCmd(ctx, c, "", model.Account{})().(ResultMsg)
	require.Equal(t, OpLogin, msg.Op)
	require.ErrorIs(t, msg.Err, ErrInvalidCredential)
}
