// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/storage"
	"github.com/jeranaias/marquee-tui/internal/token"
)

//go:generate mockgen -source=controller.go -destination=mock_identity_test.go -package=session Identity

// Identity is the part of the identity service the controller consumes.
type Identity interface {
	CurrentAccount(ctx context.Context, credential string) (model.Account, error)
	Profiles(ctx context.Context, credential string) ([]model.Profile, error)
}

// opClass groups operations whose results supersede each other.
type opClass int

const (
	opRestore opClass = iota
	opProfiles
	numOpClasses
)

func (o opClass) String() string {
	if o == opRestore {
		return "restore"
	}
	return "profiles"
}

// ticket identifies one in-flight operation.
type ticket struct {
	class opClass
	seq   uint64
	epoch uint64
}

// retryPair is what a failed profile fetch needs to run again.
type retryPair struct {
	credential string
	account    model.Account
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the single owner of session state. It is safe for
// concurrent use.
type Controller struct {
	store    storage.CredentialStore
	identity Identity
	log      zerolog.Logger
	timeout  time.Duration

	// storeMu orders credential writes with the epoch changes they belong
	// to. It is taken before mu and is never held by Snapshot.
	storeMu sync.Mutex

	mu      sync.Mutex
	state   Snapshot
	seq     [numOpClasses]uint64
	epoch   uint64
	pending *retryPair
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// New creates a controller in the initial {Unauthenticated, Loading} state.
func New(store storage.CredentialStore, identity Identity, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		identity: identity,
		log:      zerolog.Nop(),
		timeout:  DefaultRequestTimeout,
		state:    initialSnapshot(),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Credential returns the stored credential for calls made on behalf of the
// session, such as profile edits.
func (c *Controller) Credential(ctx context.Context) (string, error) {
	return c.store.Load(ctx)
}

// =============================================================================
// RESTORE
// =============================================================================

// Restore rebuilds the session from the stored credential.
//
// Without a credential the session ends unauthenticated and no network call
// is made. A malformed or rejected credential is erased (fail closed). An
// administrator becomes Active immediately; any other account continues with
// a profile fetch.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	t := c.issueLocked(opRestore)
	c.pending = nil
	s := c.state
	s.Loading = true
	s.ProfileErr = nil
	c.commitLocked(s)
	c.mu.Unlock()

	credential, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoCredential) {
			c.log.Warn().Err(err).Msg("credential store unreadable, treating as logged out")
		}
		return c.finishUnauthenticated(t)
	}

	id, err := token.Decode(credential)
	if err != nil {
		return c.failClosed(ctx, t, err)
	}
	c.log.Debug().
		Str("subject", id.Subject).
		Time("expires_at", id.ExpiresAt).
		Msg("restoring session")

	callCtx, cancel := c.withTimeout(ctx)
	account, err := c.identity.CurrentAccount(callCtx, credential)
	cancel()
	if err != nil {
		return c.failClosed(ctx, t, err)
	}

	c.mu.Lock()
	if !c.currentLocked(t) {
		c.mu.Unlock()
		return c.discard(t)
	}
	if account.IsAdmin {
		s := c.state
		s.Phase = adminPhase(account)
		s.Loading = false
		s.ProfileErr = nil
		c.commitLocked(s)
		c.mu.Unlock()
		c.log.Info().Str("account", account.DisplayName()).Msg("administrator session restored")
		return nil
	}
	pt := c.issueLocked(opProfiles)
	c.mu.Unlock()

	return c.fetchProfiles(ctx, pt, credential, account)
}

// finishUnauthenticated ends a restore without a credential.
func (c *Controller) finishUnauthenticated(t ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(t) {
		return c.discard(t)
	}
	c.commitLocked(Snapshot{Phase: Unauthenticated{}, Loading: false, Version: c.state.Version})
	return nil
}

// failClosed erases the credential and resets the session.
func (c *Controller) failClosed(ctx context.Context, t ticket, cause error) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(t) {
		return c.discard(t)
	}
	// A concurrent Login cannot save a new credential between the check
	// and the delete.
	if err := c.store.Delete(ctx); err != nil {
		c.log.Error().Err(err).Msg("failed to erase rejected credential")
	}
	c.pending = nil
	c.commitLocked(Snapshot{Phase: Unauthenticated{}, Loading: false, Version: c.state.Version})
	c.log.Warn().Err(cause).Msg("stored credential rejected, session reset")
	return fmt.Errorf("%w: %w", ErrInvalidCredential, cause)
}

// =============================================================================
// PROFILES
// =============================================================================

// LoadProfiles fetches the profile list for a validated non-admin account.
//
// On failure the session is left as it was, Loading is cleared and
// Snapshot.ProfileErr is set; RetryProfiles runs the fetch again.
func (c *Controller) LoadProfiles(ctx context.Context, credential string, account model.Account) error {
	c.mu.Lock()
	t := c.issueLocked(opProfiles)
	c.mu.Unlock()
	return c.fetchProfiles(ctx, t, credential, account)
}

// RetryProfiles repeats the last failed profile fetch.
func (c *Controller) RetryProfiles(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	p := *c.pending
	t := c.issueLocked(opProfiles)
	c.mu.Unlock()

	c.log.Info().Msg("retrying profile fetch")
	return c.fetchProfiles(ctx, t, p.credential, p.account)
}

// PendingAccount returns the account whose profile fetch failed and is
// waiting for RetryProfiles. Its credential is still stored.
func (c *Controller) PendingAccount() (model.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return model.Account{}, false
	}
	return c.pending.account.Clone(), true
}

func (c *Controller) fetchProfiles(ctx context.Context, t ticket, credential string, account model.Account) error {
	c.mu.Lock()
	if c.currentLocked(t) {
		s := c.state
		s.Loading = true
		s.ProfileErr = nil
		c.commitLocked(s)
	}
	c.mu.Unlock()

	callCtx, cancel := c.withTimeout(ctx)
	profiles, err := c.identity.Profiles(callCtx, credential)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(t) {
		return c.discard(t)
	}

	s := c.state
	s.Loading = false
	if err != nil {
		c.pending = &retryPair{credential: credential, account: account.Clone()}
		s.ProfileErr = fmt.Errorf("%w: %w", ErrProfileFetch, err)
		c.commitLocked(s)
		c.log.Warn().Err(err).Msg("profile fetch failed, session kept")
		return s.ProfileErr
	}

	c.pending = nil
	s.ProfileErr = nil
	s.Phase = AwaitingProfile{Account: account.Clone(), Profiles: sanitizeProfiles(profiles)}
	c.commitLocked(s)
	c.log.Info().Int("profiles", len(profiles)).Msg("profiles loaded")
	return nil
}

// sanitizeProfiles gives every listed profile an id and strips admin flags;
// only the synthetic admin profile may carry one.
func sanitizeProfiles(in []model.Profile) []model.Profile {
	out := model.CloneProfiles(in)
	if out == nil {
		out = []model.Profile{}
	}
	for i := range out {
		out[i].IsAdmin = false
	}
	return model.AssignIDs(out)
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login adopts a credential issued by the identity service.
//
// The credential is persisted first; a persistence failure is logged and
// does not stop the login. Administrators become Active without any network
// call. Other accounts continue with a profile fetch.
func (c *Controller) Login(ctx context.Context, credential string, account model.Account) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return fmt.Errorf("%w: empty credential", ErrInvalidCredential)
	}

	c.storeMu.Lock()
	if err := c.store.Save(ctx, credential); err != nil {
		c.log.Error().Err(err).Msg("failed to persist credential")
	}
	c.mu.Lock()
	c.epoch++
	c.pending = nil

	if account.IsAdmin {
		s := c.state
		s.Phase = adminPhase(account)
		s.Loading = false
		s.ProfileErr = nil
		c.commitLocked(s)
		c.mu.Unlock()
		c.storeMu.Unlock()
		c.log.Info().Str("account", account.DisplayName()).Msg("administrator logged in")
		return nil
	}
	s := c.state
	s.ProfileErr = nil
	c.commitLocked(s)
	t := c.issueLocked(opProfiles)
	c.mu.Unlock()
	c.storeMu.Unlock()

	c.log.Info().Str("account", account.DisplayName()).Msg("logged in")
	return c.fetchProfiles(ctx, t, credential, account)
}

// Logout erases the credential and resets the session. It always resets
// state; the returned error only reports a failed erase.
func (c *Controller) Logout(ctx context.Context) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	err := c.store.Delete(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to erase credential on logout")
		err = fmt.Errorf("erase credential: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.pending = nil
	c.commitLocked(Snapshot{Phase: Unauthenticated{}, Loading: false, Version: c.state.Version})
	c.log.Info().Msg("logged out")
	return err
}

// =============================================================================
// LOCAL PROFILE MUTATIONS
// =============================================================================

// SelectProfile makes the listed profile with the given id active.
func (c *Controller) SelectProfile(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var account model.Account
	var profiles []model.Profile
	switch p := c.state.Phase.(type) {
	case AwaitingProfile:
		account, profiles = p.Account, p.Profiles
	case Active:
		if p.Profile.IsAdmin {
			return fmt.Errorf("%w: administrators have no profiles", ErrInvalidTransition)
		}
		account, profiles = p.Account, p.Profiles
	default:
		return fmt.Errorf("%w: not authenticated", ErrInvalidTransition)
	}

	idx := model.IndexOf(profiles, id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}
	s := c.state
	s.Phase = Active{Account: account, Profile: profiles[idx].Clone(), Profiles: profiles}
	c.commitLocked(s)
	return nil
}

// CreateProfile appends a profile to the list without selecting it and
// returns it as stored, with its id assigned.
func (c *Controller) CreateProfile(p model.Profile) (model.Profile, error) {
	p = p.Clone()
	p.Name = model.NormalizeName(p.Name)
	p.IsAdmin = false
	if p.Name == "" {
		return model.Profile{}, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if p.Emoji == "" {
		p.Emoji = model.DefaultProfileEmoji
	}
	if p.ID == "" {
		p.ID = model.NewProfileID()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var profiles []model.Profile
	switch ph := c.state.Phase.(type) {
	case AwaitingProfile:
		profiles = ph.Profiles
	case Active:
		if ph.Profile.IsAdmin {
			return model.Profile{}, fmt.Errorf("%w: administrators have no profiles", ErrInvalidTransition)
		}
		profiles = ph.Profiles
	default:
		return model.Profile{}, fmt.Errorf("%w: not authenticated", ErrInvalidTransition)
	}
	for _, existing := range profiles {
		if existing.ID == p.ID || model.SameName(existing.Name, p.Name) {
			return model.Profile{}, fmt.Errorf("%w: %q", ErrDuplicateProfile, p.Name)
		}
	}

	next := append(model.CloneProfiles(profiles), p)
	s := c.state
	switch ph := s.Phase.(type) {
	case AwaitingProfile:
		ph.Profiles = next
		s.Phase = ph
	case Active:
		ph.Profiles = next
		s.Phase = ph
	}
	c.commitLocked(s)
	return p.Clone(), nil
}

// UpdateProfile merges patch into the selected profile and into the list
// entry with the same id. If no entry has that id the list is left alone
// and only the selected profile changes.
func (c *Controller) UpdateProfile(patch model.ProfilePatch) (model.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	active, ok := c.state.Phase.(Active)
	switch {
	case !ok:
		return model.Profile{}, fmt.Errorf("%w: no profile selected", ErrInvalidTransition)
	case active.Profile.IsAdmin:
		return model.Profile{}, fmt.Errorf("%w: the administrator profile is fixed", ErrInvalidTransition)
	}
	if patch.IsEmpty() {
		return active.Profile.Clone(), nil
	}
	if patch.Name != nil {
		name := model.NormalizeName(*patch.Name)
		if name == "" {
			return model.Profile{}, fmt.Errorf("%w: name is required", ErrInvalidProfile)
		}
		for _, other := range active.Profiles {
			if other.ID != active.Profile.ID && model.SameName(other.Name, name) {
				return model.Profile{}, fmt.Errorf("%w: %q", ErrDuplicateProfile, name)
			}
		}
	}

	updated := patch.Apply(active.Profile)
	profiles := model.CloneProfiles(active.Profiles)
	if idx := model.IndexOf(profiles, active.Profile.ID); idx >= 0 {
		profiles[idx] = patch.Apply(profiles[idx])
	} else {
		c.log.Debug().Str("profile", active.Profile.ID).Msg("selected profile not in list, list unchanged")
	}

	s := c.state
	s.Phase = Active{Account: active.Account, Profile: updated, Profiles: profiles}
	c.commitLocked(s)
	return updated.Clone(), nil
}

// =============================================================================
// UI FLAGS
// =============================================================================

// SetSidebarOpen records whether the sidebar is shown.
func (c *Controller) SetSidebarOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.SidebarOpen == open {
		return
	}
	s := c.state
	s.SidebarOpen = open
	c.commitLocked(s)
}

// SetInfoOpen records whether the info overlay is shown.
func (c *Controller) SetInfoOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.InfoOpen == open {
		return
	}
	s := c.state
	s.InfoOpen = open
	c.commitLocked(s)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe returns a channel that receives every new snapshot and a cancel
// func. A slow reader only sees the latest snapshot.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close ends all subscriptions. The controller stays usable.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// issueLocked starts a new operation of class within the current epoch.
func (c *Controller) issueLocked(class opClass) ticket {
	c.seq[class]++
	return ticket{class: class, seq: c.seq[class], epoch: c.epoch}
}

// currentLocked reports whether t is still the latest operation of its
// class and no login, logout or restore has happened since it was issued.
func (c *Controller) currentLocked(t ticket) bool {
	return c.seq[t.class] == t.seq && c.epoch == t.epoch
}

func (c *Controller) discard(t ticket) error {
	c.log.Debug().
		Stringer("op", t.class).
		Uint64("seq", t.seq).
		Uint64("epoch", t.epoch).
		Msg("discarding stale result")
	return ErrSuperseded
}

// commitLocked replaces the state and notifies subscribers.
func (c *Controller) commitLocked(s Snapshot) {
	s.Version = c.state.Version + 1
	c.state = s
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.clone():
		default:
		}
	}
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
