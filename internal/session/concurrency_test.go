// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/storage"
)

// Mixed operations from many goroutines must never expose a snapshot that
// breaks the session relations, and must end in a consistent state.
func TestController_ConcurrentOperations(t *testing.T) {
	mock := NewMockIdentity(gomock.NewController(t))
	store := storage.NewMemoryStore()
	c := New(store, mock, WithRequestTimeout(time.Second))
	defer c.Close()

	cred := credential(t, "u1")
	mock.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(userAccount, nil).AnyTimes()
	mock.EXPECT().Profiles(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string) ([]model.Profile, error) {
			time.Sleep(time.Millisecond)
			return twoProfiles(), nil
		}).AnyTimes()

	ch, cancel := c.Subscribe()
	var observed atomic.Int64
	var watcher conc.WaitGroup
	watcher.Go(func() {
		for s := range ch {
			requireInvariants(t, s)
			observed.Add(1)
		}
	})

	ctx := context.Background()
	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			for j := 0; j < 20; j++ {
				switch (i + j) % 7 {
				case 0:
					_ = c.Login(ctx, cred, userAccount)
				case 1:
					_ = c.Login(ctx, "admin-"+cred, adminAccount)
				case 2:
					_ = c.Logout(ctx)
				case 3:
					_ = c.Restore(ctx)
				case 4:
					if ps := c.Snapshot().Profiles(); len(ps) > 0 {
						_ = c.SelectProfile(ps[0].ID)
					}
				case 5:
					_, _ = c.CreateProfile(model.Profile{Name: "Guest"})
					_, _ = c.UpdateProfile(model.ProfilePatch{IsChild: model.Bool(true)})
				case 6:
					c.SetSidebarOpen(j%2 == 0)
					requireInvariants(t, c.Snapshot())
				}
			}
		})
	}
	wg.Wait()

	// Settle on a known state.
	require.NoError(t, c.Logout(ctx))
	requireLoggedOut(t, c.Snapshot())

	cancel()
	watcher.Wait()
	require.Positive(t, observed.Load())
}

// Parallel restores against the same stored credential converge on one
// result and every restore either finishes or reports it was superseded.
func TestController_ParallelRestores(t *testing.T) {
	mock := NewMockIdentity(gomock.NewController(t))
	store := storage.NewMemoryStore()
	c := New(store, mock)

	cred := credential(t, "u1")
	require.NoError(t, store.Save(context.Background(), cred))
	mock.EXPECT().CurrentAccount(gomock.Any(), cred).Return(userAccount, nil).AnyTimes()
	mock.EXPECT().Profiles(gomock.Any(), cred).Return(twoProfiles(), nil).AnyTimes()

	p := pool.New().WithErrors()
	for i := 0; i < 10; i++ {
		p.Go(func() error {
			err := c.Restore(context.Background())
			if errors.Is(err, ErrSuperseded) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, p.Wait())

	s := c.Snapshot()
	require.False(t, s.Loading)
	require.Equal(t, ModeProfileSelection, Project(s))
	require.Len(t, s.Profiles(), 2)
}
