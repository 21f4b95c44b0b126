// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identitytest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

func withUser(r *http.Request, userID string) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, userID)
}

// currentUser returns the authenticated user; the caller must hold s.mu.
func (s *Server) currentUser(r *http.Request) *User {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return s.users[id]
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) && u.Password == req.Password {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": s.issueLocked(u.ID),
				"user": map[string]any{
					"id":       u.ID,
					"name":     u.Name,
					"email":    u.Email,
					"is_admin": u.IsAdmin,
				},
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid credentials")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		Email         string `json:"email"`
		Password      string `json:"password"`
		Emoji         string `json:"profile_emoji"`
		IsChild       bool   `json:"is_child"`
		AcceptedTerms *bool  `json:"accepted_terms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Name == "" || req.Email == "" || req.Password == "" || req.AcceptedTerms == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !*req.AcceptedTerms {
		writeError(w, http.StatusBadRequest, "You must accept terms and conditions")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	credential := s.addUserLocked(User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Emoji:    req.Emoji,
		IsChild:  req.IsChild,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "User registered successfully",
		"access_token":  credential,
		"refresh_token": credential + ".refresh",
		"user_id":       s.credentials[credential],
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.currentUser(r)
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	profiles := make([]wireProfile, 0, len(u.Profiles))
	for _, p := range u.Profiles {
		profiles = append(profiles, toWire(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":          u.Name,
		"email":         u.Email,
		"profile_emoji": u.Emoji,
		"is_child":      u.IsChild,
		"is_admin":      u.IsAdmin,
		"profiles":      profiles,
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.currentUser(r)
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	profiles := make([]wireProfile, 0, len(u.Profiles))
	for _, p := range u.Profiles {
		profiles = append(profiles, toWire(p))
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Emoji   string `json:"profile_emoji"`
		IsChild bool   `json:"is_child"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Failed to create profile")
		return
	}
	if req.Emoji == "" {
		req.Emoji = "👤"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.currentUser(r)
	if u == nil {
		writeError(w, http.StatusBadRequest, "Failed to create profile")
		return
	}
	p := Profile{Name: req.Name, Emoji: req.Emoji, IsChild: req.IsChild, CreatedAt: time.Now().UTC()}
	u.Profiles = append(u.Profiles, p)
	writeJSON(w, http.StatusCreated, toWire(p))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Emoji string `json:"profile_emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "Name and profile emoji are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.currentUser(r)
	idx := profileIndex(r)
	if u == nil || idx < 0 || idx >= len(u.Profiles) {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	u.Profiles[idx].Name = req.Name
	u.Profiles[idx].Emoji = req.Emoji
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.NewPassword) < 4 {
		writeError(w, http.StatusBadRequest, "Password must be at least 4 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.currentUser(r)
	if u == nil {
		writeError(w, http.StatusBadRequest, "Failed to reset password")
		return
	}
	u.Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}
