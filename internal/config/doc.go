// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for marquee.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (highest first):
//   - Environment variables (MARQUEE_*)
//   - The file named by --config
//   - ~/.marquee/config.toml
//   - ~/.marquee/config.json
//   - Built-in defaults
//
// MARQUEE_HOME moves the ~/.marquee directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := identity.NewClient(cfg.Identity.BaseURL).
//	    WithTimeout(cfg.Identity.Timeout())
package config
