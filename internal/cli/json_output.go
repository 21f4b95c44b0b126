// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope of every --json output.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w, indented.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// RESPONSE DATA
// =============================================================================

// VersionData is the data of "version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// ProfileData is one profile in status and profiles output.
type ProfileData struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	IsChild   bool   `json:"is_child"`
	IsDefault bool   `json:"is_default"`
}

// AccountData is the account in status output.
type AccountData struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin"`
}

// StatusData is the data of "status --json" and "whoami --json".
type StatusData struct {
	LoggedIn     bool          `json:"logged_in"`
	Mode         string        `json:"mode"`
	Account      *AccountData  `json:"account,omitempty"`
	Profiles     []ProfileData `json:"profiles"`
	ProfileError string        `json:"profile_error,omitempty"`
	Notice       string        `json:"notice,omitempty"`
	Server       string        `json:"server"`
	Storage      string        `json:"storage"`
}
