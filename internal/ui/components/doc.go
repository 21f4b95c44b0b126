// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the marquee TUI.
//
// Components are plain structs with a View method. The ones that animate
// (Spinner, ToastManager) also take Update and return tea.Cmds; the app
// model owns them and forwards messages.
package components
