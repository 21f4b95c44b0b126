// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/marquee-tui/internal/util"
)

var (
	// ErrUnauthorized indicates the credential was rejected (401 or 403).
	ErrUnauthorized = errors.New("credential rejected by identity service")

	// ErrMalformedResponse indicates a 2xx response whose body could not be decoded.
	ErrMalformedResponse = errors.New("malformed identity service response")

	// ErrInvalidInput indicates a request that failed client-side validation.
	ErrInvalidInput = errors.New("invalid input")
)

// maxErrorMessage bounds how much of an unstructured error body is kept.
const maxErrorMessage = 200

// StatusError is a non-2xx response from the identity service.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity: %s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("identity: %s %s: HTTP %d", e.Method, e.Path, e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match rejected credentials.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Unauthorized()
}

// Unauthorized reports whether the service rejected the credential.
func (e *StatusError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// errorBody covers the shapes the service uses for failures: handlers
// answer {"error": ...}, the JWT layer answers {"msg": ...}.
type errorBody struct {
	Error   string `json:"error"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	return &StatusError{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: errorMessage(status, body),
	}
}

func errorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		for _, m := range []string{eb.Error, eb.Msg, eb.Message} {
			if m != "" {
				return m
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(status)
	}
	return util.TruncateRunes(text, maxErrorMessage)
}
