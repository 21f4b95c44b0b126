// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/marquee-tui/internal/model"
)

// Configuration constants for the identity service.
const (
	// DefaultBaseURL is where the identity service listens in development.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout bounds every request attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of extra attempts for idempotent calls.
	DefaultMaxRetries = 2

	// DefaultRequestsPerSecond caps outgoing request rate.
	DefaultRequestsPerSecond = 10

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 250 * time.Millisecond

	// retryMaxDelay caps a single backoff sleep.
	retryMaxDelay = 5 * time.Second

	// MaxResponseSize is the maximum accepted response body size.
	MaxResponseSize = 1 << 20

	userAgent = "marquee-tui"
)

// Client talks to the identity service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint
	retryDelay time.Duration
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		maxRetries: DefaultMaxRetries,
		retryDelay: retryBaseDelay,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		log:        zerolog.Nop(),
	}
}

// WithBaseURL sets a custom base URL.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout sets the per-attempt timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithMaxRetries sets how many times a failed idempotent call is repeated.
func (c *Client) WithMaxRetries(n int) *Client {
	if n < 0 {
		n = 0
	}
	c.maxRetries = uint(n)
	return c
}

// WithRetryDelay sets the base backoff delay.
func (c *Client) WithRetryDelay(d time.Duration) *Client {
	c.retryDelay = d
	return c
}

// WithRateLimit caps the request rate. Zero or negative disables the limit.
func (c *Client) WithRateLimit(perSecond float64) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log.With().Str("component", "identity").Logger()
	return c
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// SESSION CALLS
// =============================================================================

// CurrentAccount returns the account that owns credential.
func (c *Client) CurrentAccount(ctx context.Context, credential string) (model.Account, error) {
	var account model.Account
	if err := c.get(ctx, "/user/profile", credential, &account); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// Profiles returns the profile list of the credential's account.
func (c *Client) Profiles(ctx context.Context, credential string) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := c.get(ctx, "/user/profiles", credential, &profiles); err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	return profiles, nil
}

// =============================================================================
// ACCOUNT CALLS
// =============================================================================

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	var resp loginResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return LoginResult{}, err
	}
	if resp.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("%w: login response has no access_token", ErrMalformedResponse)
	}
	return LoginResult{Credential: resp.AccessToken, Account: resp.User}, nil
}

// Register creates an account and returns its first credential.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		return RegisterResult{}, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	case !req.AcceptedTerms:
		return RegisterResult{}, fmt.Errorf("%w: terms must be accepted", ErrInvalidInput)
	}

	var resp registerResponse
	if err := c.send(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return RegisterResult{}, err
	}
	if resp.AccessToken == "" {
		return RegisterResult{}, fmt.Errorf("%w: register response has no access_token", ErrMalformedResponse)
	}
	return RegisterResult{
		Credential:   resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
	}, nil
}

// CreateProfile adds a profile to the account and returns it as stored.
func (c *Client) CreateProfile(ctx context.Context, credential string, in ProfileInput) (model.Profile, error) {
	in.Name = model.NormalizeName(in.Name)
	if in.Name == "" {
		return model.Profile{}, fmt.Errorf("%w: profile name is required", ErrInvalidInput)
	}
	if in.Emoji == "" {
		in.Emoji = model.DefaultProfileEmoji
	}

	var created model.Profile
	if err := c.send(ctx, http.MethodPost, "/user/profiles", credential, in, &created); err != nil {
		return model.Profile{}, err
	}
	return created, nil
}

// UpdateProfile renames the profile at position index and sets its emoji.
// The service addresses profiles by list position.
func (c *Client) UpdateProfile(ctx context.Context, credential string, index int, name, emoji string) error {
	name = model.NormalizeName(name)
	switch {
	case index < 0:
		return fmt.Errorf("%w: profile index %d", ErrInvalidInput, index)
	case name == "" || emoji == "":
		return fmt.Errorf("%w: name and profile emoji are required", ErrInvalidInput)
	}
	path := "/user/profile/" + strconv.Itoa(index)
	return c.send(ctx, http.MethodPut, path, credential, profileUpdateRequest{Name: name, Emoji: emoji}, nil)
}

// ResetPassword changes the account password.
func (c *Client) ResetPassword(ctx context.Context, credential, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return c.send(ctx, http.MethodPost, "/user/reset-password", credential, resetPasswordRequest{NewPassword: newPassword}, nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// get performs an idempotent GET with retries.
func (c *Client) get(ctx context.Context, path, credential string, out any) error {
	attempt := func() error {
		return c.do(ctx, http.MethodGet, path, credential, nil, out)
	}
	return retry.Do(attempt,
		retry.Context(ctx),
		retry.Attempts(c.maxRetries+1),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Str("path", path).Uint("attempt", n+1).Err(err).Msg("retrying identity request")
		}),
	)
}

// send performs a single non-idempotent request.
func (c *Client) send(ctx context.Context, method, path, credential string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("identity: encode %s %s: %w", method, path, err)
	}
	return c.do(ctx, method, path, credential, payload, out)
}

func (c *Client) do(ctx context.Context, method, path, credential string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("identity: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Err(err).Msg("identity request failed")
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// Headers are never logged; they carry the credential.
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("identity response")

	data, err := readResponse(resp)
	if err != nil {
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeded %d bytes", ErrMalformedResponse, MaxResponseSize)
	}
	return data, nil
}

// isTransient reports whether a failed GET is worth repeating. Per-attempt
// timeouts are retried; caller cancellation is not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
