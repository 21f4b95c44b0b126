// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root bubbletea model of the marquee client.
//
// The model subscribes to a session.Controller and re-derives its screen
// from every snapshot with session.Project. Local state only chooses among
// the screens of the current mode (login or register, picker or create
// form, home or settings) and is discarded whenever the mode changes.
//
// # Screens
//
//   - splash, then a spinner while the session is restored
//   - login and registration forms
//   - profile picker with a create-profile form and a retry banner
//   - home with header, sidebar and an info overlay
//   - profile settings and profile switcher
package app
