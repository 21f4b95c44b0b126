// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authentication state of a marquee client.
//
// The Controller is the only writer of session state. It restores a session
// from the stored credential, validates it against the identity service,
// resolves the active profile, and publishes immutable Snapshots. Screens are
// chosen from a snapshot with Project, never from cached flags.
//
// # Phases
//
// A session is always in exactly one phase:
//
//   - Unauthenticated: no usable credential
//   - AwaitingProfile: a non-admin account whose profile is not chosen yet
//   - Active: a chosen profile; administrators get the synthetic admin
//     profile and no profile list
//
// # Failure Policy
//
// Credential validation fails closed: any doubt erases the credential.
// Profile listing fails open: authentication is kept and the failure is
// exposed as Snapshot.ProfileErr until RetryProfiles succeeds.
//
// # Concurrency
//
// Every network-bound operation takes a request ticket. Login, Logout and
// Restore start a new session generation; a completion whose ticket is no
// longer current is discarded instead of merged.
//
// # Usage
//
//	ctrl := session.New(store, identityClient, session.WithLogger(log))
//	defer ctrl.Close()
//
//	if err := ctrl.Restore(ctx); err != nil {
//		log.Warn().Err(err).Msg("restore")
//	}
//	switch session.Project(ctrl.Snapshot()) {
//	case session.ModeUnauthenticated:
//		// login screen
//	}
package session
