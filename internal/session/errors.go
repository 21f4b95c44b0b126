// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

var (
	// ErrInvalidCredential means the stored credential was malformed or
	// rejected. The credential has been erased.
	ErrInvalidCredential = errors.New("invalid or expired credential")

	// ErrProfileFetch means the profile list could not be loaded. The
	// session is kept and the fetch can be retried.
	ErrProfileFetch = errors.New("failed to load profiles")

	// ErrUnknownProfile means a profile id is not in the current list.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrDuplicateProfile means a profile id or name is already taken.
	ErrDuplicateProfile = errors.New("duplicate profile")

	// ErrInvalidProfile means a profile is missing required fields.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidTransition means the operation is not allowed in the
	// current phase.
	ErrInvalidTransition = errors.New("operation not allowed in current session phase")

	// ErrNothingToRetry means no failed profile fetch is pending.
	ErrNothingToRetry = errors.New("no failed profile fetch to retry")

	// ErrSuperseded means a newer session operation made this one's result
	// obsolete; it was discarded.
	ErrSuperseded = errors.New("superseded by a newer session operation")
)
