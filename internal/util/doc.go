// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by marquee packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing on an afero filesystem
//
// Display Width:
//   - TruncateWidth, StringWidth, PadRight: cell-accurate sizing for emoji
//     and wide characters
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//
// # Usage
//
//	err := util.AtomicWriteFile(afero.NewOsFs(), path, data, 0600)
//	label := util.TruncateWidth(profile.Label(), 20)
package util
