// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity is the HTTP client for the marquee identity service.
//
// The service issues bearer credentials and owns accounts and their
// profiles. Two calls drive session restoration:
//
//	GET /user/profile   account of the credential holder (is_admin lives here)
//	GET /user/profiles  profile list of that account
//
// The remaining calls back the login, registration and settings screens.
//
// # Errors
//
// A non-2xx response becomes a *StatusError. 401 and 403 also match
// ErrUnauthorized under errors.Is. A 2xx body that cannot be decoded is
// reported as ErrMalformedResponse. Transport failures are wrapped as-is.
//
// # Retries
//
// Idempotent GETs are retried on transport errors, 5xx and 429 with
// exponential backoff. Writes are sent exactly once.
//
// # Usage
//
//	client := identity.NewClient("http://localhost:5000").
//		WithTimeout(10 * time.Second).
//		WithMaxRetries(2)
//
//	account, err := client.CurrentAccount(ctx, credential)
package identity
