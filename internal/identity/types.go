// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "github.com/jeranaias/marquee-tui/internal/model"

// MinPasswordLength is the shortest password the service accepts.
const MinPasswordLength = 4

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Credential string
	Account    model.Account
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Emoji         string `json:"profile_emoji,omitempty"`
	IsChild       bool   `json:"is_child"`
	AcceptedTerms bool   `json:"accepted_terms"`
}

// RegisterResult is the outcome of a successful registration.
type RegisterResult struct {
	Credential   string
	RefreshToken string
	UserID       string
}

// ProfileInput is the body of POST /user/profiles.
type ProfileInput struct {
	Name    string `json:"name"`
	Emoji   string `json:"profile_emoji,omitempty"`
	IsChild bool   `json:"is_child"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string        `json:"access_token"`
	User        model.Account `json:"user"`
}

type registerResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

type profileUpdateRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"profile_emoji"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}
