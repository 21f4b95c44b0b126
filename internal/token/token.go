// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package token decodes the bearer credential issued by the identity service.
//
// The client never holds the signing key, so decoding is structural only:
// it proves the credential is a well-formed JWT and exposes its claims for
// display and logging. Authority always comes from the identity service.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmpty is returned for a blank credential.
	ErrEmpty = errors.New("credential is empty")

	// ErrMalformed is returned when the credential is not a decodable JWT.
	ErrMalformed = errors.New("credential is not a well-formed token")
)

// Identity is the locally decoded, unverified content of a credential.
type Identity struct {
	Subject   string
	ID        string
	Type      string
	Fresh     bool
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time
	Claims    map[string]any
}

// Expired reports whether the credential carries an expiry before now.
// A credential without exp never expires locally.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

// Decode parses the credential without verifying its signature.
func Decode(credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, ErrEmpty
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id := Identity{Claims: map[string]any(claims)}
	id.Subject = subject(claims["sub"])
	if jti, ok := claims["jti"].(string); ok {
		id.ID = jti
	}
	if typ, ok := claims["type"].(string); ok {
		id.Type = typ
	}
	if fresh, ok := claims["fresh"].(bool); ok {
		id.Fresh = fresh
	}

	var err error
	if id.IssuedAt, err = numericTime(claims.GetIssuedAt); err != nil {
		return Identity{}, err
	}
	if id.ExpiresAt, err = numericTime(claims.GetExpirationTime); err != nil {
		return Identity{}, err
	}
	if id.NotBefore, err = numericTime(claims.GetNotBefore); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func numericTime(get func() (*jwt.NumericDate, error)) (time.Time, error) {
	nd, err := get()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if nd == nil {
		return time.Time{}, nil
	}
	return nd.Time.UTC(), nil
}

// subject accepts both string and numeric sub claims; older identity
// service releases issued the account id as a number.
func subject(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
