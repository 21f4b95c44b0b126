// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultRequestTimeout bounds each identity service call made by the
// controller.
const DefaultRequestTimeout = 15 * time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log.With().Str("component", "session").Logger()
	}
}

// WithRequestTimeout bounds each identity call. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}
