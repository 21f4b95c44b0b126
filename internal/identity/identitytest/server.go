// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identitytest runs an in-process identity service for tests.
//
// The fake speaks the same wire format as the real service: errors as
// {"error": ...}, JWT-layer rejections as {"msg": ...}, datetimes in HTTP-date
// form, and profiles addressed by list position.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// signingKey signs every credential the fake issues.
var signingKey = []byte("identitytest-signing-key")

// User is an account held by the fake service.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	Emoji    string
	IsChild  bool
	IsAdmin  bool
	Profiles []Profile
}

// Profile is the stored form of a profile.
type Profile struct {
	Name               string
	Emoji              string
	IsChild            bool
	IsDefault          bool
	PreferredGenres    []string
	PreferredLanguages []string
	Watchlist          []int
	CreatedAt          time.Time
}

// Server is a fake identity service backed by httptest.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]*User // by id
	credentials map[string]string
	faults      map[string][]int
	holds       map[string]chan struct{}
	hits        map[string]int
}

// NewServer starts a fake service that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:       make(map[string]*User),
		credentials: make(map[string]string),
		faults:      make(map[string][]int),
		holds:       make(map[string]chan struct{}),
		hits:        make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)

	user := r.PathPrefix("/user").Subrouter()
	user.Use(s.requireCredential)
	user.HandleFunc("/profile", s.handleAccount).Methods(http.MethodGet)
	user.HandleFunc("/profiles", s.handleProfiles).Methods(http.MethodGet)
	user.HandleFunc("/profiles", s.handleCreateProfile).Methods(http.MethodPost)
	user.HandleFunc("/profile/{idx:[0-9]+}", s.handleUpdateProfile).Methods(http.MethodPut)
	user.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	return r
}

// =============================================================================
// FIXTURES
// =============================================================================

// AddUser stores u and returns a valid credential for it. A user without
// profiles gets a default one named after the account, as on registration.
func (s *Server) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(u)
}

func (s *Server) addUserLocked(u User) string {
	if u.ID == "" {
		u.ID = strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	}
	if u.Emoji == "" {
		u.Emoji = "👤"
	}
	if len(u.Profiles) == 0 && !u.IsAdmin {
		u.Profiles = []Profile{{Name: u.Name, Emoji: u.Emoji, IsDefault: true, CreatedAt: time.Now().UTC()}}
	}
	stored := u
	s.users[u.ID] = &stored
	return s.issueLocked(u.ID)
}

// Issue returns a fresh credential for the user with the given id.
func (s *Server) Issue(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

func (s *Server) issueLocked(userID string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"jti":   uuid.NewString(),
		"type":  "access",
		"fresh": false,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(15 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic("identitytest: sign credential: " + err.Error())
	}
	s.credentials[signed] = userID
	return signed
}

// Revoke makes credential unknown to the service.
func (s *Server) Revoke(credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, credential)
}

// User returns a copy of the stored user.
func (s *Server) User(id string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	out := *u
	out.Profiles = append([]Profile(nil), u.Profiles...)
	return out, true
}

// =============================================================================
// FAULT INJECTION
// =============================================================================

// Fail makes the next len(statuses) requests to path answer with those
// statuses, in order, before normal handling resumes.
func (s *Server) Fail(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = append(s.faults[path], statuses...)
}

// Hold blocks requests to path until the returned release func is called.
func (s *Server) Hold(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[path] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[path] == ch {
				delete(s.holds, path)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		s.mu.Lock()
		s.hits[path]++
		hold := s.holds[path]
		var status int
		if queued := s.faults[path]; len(queued) > 0 {
			status, s.faults[path] = queued[0], queued[1:]
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// AUTH
// =============================================================================

type ctxKey struct{}

func (s *Server) requireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := extractBearerToken(r)
		if credential == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": err.Error()})
			return
		}

		s.mu.Lock()
		userID, ok := s.credentials[credential]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has been revoked"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, userID)))
	})
}

func extractBearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// =============================================================================
// WIRE HELPERS
// =============================================================================

type wireProfile struct {
	Name               string   `json:"name"`
	Emoji              string   `json:"profile_emoji"`
	IsChild            bool     `json:"is_child"`
	IsDefault          bool     `json:"is_default"`
	CreatedAt          string   `json:"created_at"`
	PreferredGenres    []string `json:"preferred_genres"`
	PreferredLanguages []string `json:"preferred_languages"`
	Watchlist          []int    `json:"watchlist"`
}

func toWire(p Profile) wireProfile {
	nonNil := func(in []string) []string {
		if in == nil {
			return []string{}
		}
		return in
	}
	w := wireProfile{
		Name:               p.Name,
		Emoji:              p.Emoji,
		IsChild:            p.IsChild,
		IsDefault:          p.IsDefault,
		PreferredGenres:    nonNil(p.PreferredGenres),
		PreferredLanguages: nonNil(p.PreferredLanguages),
		Watchlist:          p.Watchlist,
	}
	if w.Watchlist == nil {
		w.Watchlist = []int{}
	}
	if !p.CreatedAt.IsZero() {
		w.CreatedAt = p.CreatedAt.UTC().Format(http.TimeFormat)
	}
	return w
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func profileIndex(r *http.Request) int {
	idx, err := strconv.Atoi(mux.Vars(r)["idx"])
	if err != nil {
		return -1
	}
	return idx
}
