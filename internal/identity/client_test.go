// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/marquee-tui/internal/identity/identitytest"
)

func newTestClient(url string) *Client {
	return NewClient(url).
		WithRetryDelay(time.Millisecond).
		WithRateLimit(0).
		WithTimeout(2 * time.Second)
}

// =============================================================================
// SESSION CALLS
// =============================================================================

func TestCurrentAccount(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "pw"})

	account, err := newTestClient(srv.URL).CurrentAccount(context.Background(), cred)
	require.NoError(t, err)
	require.Equal(t, "Sam", account.Name)
	require.Equal(t, "sam@example.com", account.Email)
	require.False(t, account.IsAdmin)
	require.Len(t, account.Profiles, 1)
	require.True(t, account.Profiles[0].IsDefault)
}

func TestCurrentAccount_Admin(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Root", Email: "root@example.com", IsAdmin: true})

	account, err := newTestClient(srv.URL).CurrentAccount(context.Background(), cred)
	require.NoError(t, err)
	require.True(t, account.IsAdmin)
}

func TestCurrentAccount_Unauthorized(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com"})
	srv.Revoke(cred)

	_, err := newTestClient(srv.URL).CurrentAccount(context.Background(), cred)
	require.ErrorIs(t, err, ErrUnauthorized)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusUnauthorized, se.Status)
	require.Equal(t, "Token has been revoked", se.Message)
	require.Equal(t, 1, srv.Hits("/user/profile"), "4xx must not be retried")
}

func TestProfiles_DecodesHTTPDates(t *testing.T) {
	srv := identitytest.NewServer(t)
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	cred := srv.AddUser(identitytest.User{
		Name:  "Sam",
		Email: "sam@example.com",
		Profiles: []identitytest.Profile{
			{Name: "Sam", Emoji: "🙂", IsDefault: true, CreatedAt: created},
			{Name: "Kid", Emoji: "🧸", IsChild: true},
		},
	})

	profiles, err := newTestClient(srv.URL).Profiles(context.Background(), cred)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, created, profiles[0].CreatedAt.Time)
	require.True(t, profiles[1].IsChild)
	require.True(t, profiles[1].CreatedAt.IsZero())
}

func TestProfiles_RetriesTransientFailures(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com"})
	srv.Fail("/user/profiles", http.StatusServiceUnavailable, http.StatusTooManyRequests)

	profiles, err := newTestClient(srv.URL).WithMaxRetries(2).Profiles(context.Background(), cred)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, 3, srv.Hits("/user/profiles"))
}

func TestProfiles_GivesUpAfterMaxRetries(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com"})
	srv.Fail("/user/profiles", 500, 500, 500, 500)

	_, err := newTestClient(srv.URL).WithMaxRetries(1).Profiles(context.Background(), cred)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 500, se.Status)
	require.Equal(t, 2, srv.Hits("/user/profiles"))
}

func TestProfiles_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not":"a list"`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Profiles(context.Background(), "cred")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestProfiles_NullBodyIsEmptyList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer ts.Close()

	profiles, err := newTestClient(ts.URL).Profiles(context.Background(), "cred")
	require.NoError(t, err)
	require.NotNil(t, profiles)
	require.Empty(t, profiles)
}

func TestRequest_SendsBearerCredential(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"name":"x","is_admin":false}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CurrentAccount(context.Background(), "abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "Bearer abc.def.ghi", gotAuth)
}

func TestRequest_ContextCancelled(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com"})
	release := srv.Hold("/user/profile")
	t.Cleanup(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL).CurrentAccount(ctx, cred)
	require.Error(t, err)
	require.Equal(t, 1, srv.Hits("/user/profile"))
}

// =============================================================================
// ACCOUNT CALLS
// =============================================================================

func TestLogin(t *testing.T) {
	srv := identitytest.NewServer(t)
	srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "secret"})
	client := newTestClient(srv.URL)

	res, err := client.Login(context.Background(), "sam@example.com", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, res.Credential)
	require.Equal(t, "Sam", res.Account.Name)

	// The issued credential works against the session calls.
	_, err = client.CurrentAccount(context.Background(), res.Credential)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "sam@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.Login(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister(t *testing.T) {
	srv := identitytest.NewServer(t)
	client := newTestClient(srv.URL)

	req := RegisterRequest{Name: "New", Email: "new@example.com", Password: "pass", AcceptedTerms: true}
	res, err := client.Register(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Credential)
	require.NotEmpty(t, res.UserID)

	_, err = client.Register(context.Background(), req)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "Email already registered", se.Message)

	req.AcceptedTerms = false
	_, err = client.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateAndUpdateProfile(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{ID: "u1", Name: "Sam", Email: "sam@example.com"})
	client := newTestClient(srv.URL)
	ctx := context.Background()

	created, err := client.CreateProfile(ctx, cred, ProfileInput{Name: "  Kid ", IsChild: true})
	require.NoError(t, err)
	require.Equal(t, "Kid", created.Name)
	require.Equal(t, "👤", created.Emoji)
	require.True(t, created.IsChild)

	require.NoError(t, client.UpdateProfile(ctx, cred, 1, "Junior", "🧸"))
	u, ok := srv.User("u1")
	require.True(t, ok)
	require.Equal(t, "Junior", u.Profiles[1].Name)
	require.Equal(t, "🧸", u.Profiles[1].Emoji)

	err = client.UpdateProfile(ctx, cred, 9, "Nobody", "👻")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusNotFound, se.Status)

	require.ErrorIs(t, client.UpdateProfile(ctx, cred, 0, "", "x"), ErrInvalidInput)
}

func TestCreateProfile_NotRetried(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com"})
	srv.Fail("/user/profiles", http.StatusBadGateway)

	_, err := newTestClient(srv.URL).CreateProfile(context.Background(), cred, ProfileInput{Name: "Kid"})
	require.Error(t, err)
	require.Equal(t, 1, srv.Hits("/user/profiles"))
}

func TestResetPassword(t *testing.T) {
	srv := identitytest.NewServer(t)
	cred := srv.AddUser(identitytest.User{ID: "u1", Name: "Sam", Email: "sam@example.com", Password: "old"})
	client := newTestClient(srv.URL)

	require.ErrorIs(t, client.ResetPassword(context.Background(), cred, "abc"), ErrInvalidInput)
	require.Zero(t, srv.Hits("/user/reset-password"))

	require.NoError(t, client.ResetPassword(context.Background(), cred, "newpass"))
	u, _ := srv.User("u1")
	require.Equal(t, "newpass", u.Password)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", 400, `{"error":"bad"}`, "bad"},
		{"jwt msg field", 422, `{"msg":"Not enough segments"}`, "Not enough segments"},
		{"plain text", 500, "boom", "boom"},
		{"html page", 502, "<html>bad gateway</html>", "Bad Gateway"},
		{"empty", 503, "", "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, errorMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestErrorMessage_TruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", maxErrorMessage+50)
	msg := errorMessage(500, []byte(body))
	require.True(t, utf8.ValidString(msg))
	require.Equal(t, maxErrorMessage, utf8.RuneCountInString(msg))
	require.True(t, strings.HasSuffix(msg, "..."))
}

func TestIsTransient(t *testing.T) {
	require.True(t, isTransient(&StatusError{Status: 503}))
	require.True(t, isTransient(&StatusError{Status: 429}))
	require.False(t, isTransient(&StatusError{Status: 404}))
	require.False(t, isTransient(ErrMalformedResponse))
	require.False(t, isTransient(context.Canceled))
	require.True(t, isTransient(errors.New("connection reset by peer")))
}
