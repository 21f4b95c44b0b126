// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the account and profile types shared by the
// session controller, the identity client and the UI.
//
// # Key Types
//
//   - Account: The authenticated account as reported by the identity service
//   - Profile: A named persona under one account
//   - ProfilePatch: A partial profile update
//   - Timestamp: Tolerant time decoding for identity service payloads
//
// # Usage
//
// Administrators never choose a profile; their profile is synthesised:
//
//	p := model.AdminProfile()
//	p.IsAdmin // true
//
// Profiles are identified by ID, never by name or emoji:
//
//	patch := model.ProfilePatch{Emoji: model.String("🎬")}
//	updated := patch.Apply(current)
package model
