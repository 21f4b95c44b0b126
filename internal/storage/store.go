// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// =============================================================================
// INTERFACES
// =============================================================================

var (
	// ErrNoCredential is returned by Load when nothing is stored.
	ErrNoCredential = errors.New("no stored credential")

	// ErrEmptyCredential is returned by Save for a blank credential.
	ErrEmptyCredential = errors.New("credential is empty")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// CredentialStore holds the single durable credential.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Delete(ctx context.Context) error
}

// Backend is a CredentialStore that owns resources.
type Backend interface {
	CredentialStore
	Close() error
}

// Watchable is a backend whose state can change underneath the process.
type Watchable interface {
	Backend

	// Path is the on-disk location to watch.
	Path() string

	// Refresh re-reads the stored credential and reports whether it differs
	// from what this process last saw.
	Refresh(ctx context.Context) (Change, bool, error)
}

// Change describes the stored credential after an external write.
type Change struct {
	Credential string
	Present    bool
}

// =============================================================================
// OPEN
// =============================================================================

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default file names inside the marquee directory.
const (
	DefaultCredentialFile = "credential"
	DefaultDatabaseFile   = "marquee.db"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string

	// Fs is used by the file backend. Defaults to the OS filesystem.
	Fs afero.Fs
}

// DefaultPath returns the default location of backend inside dir.
func DefaultPath(backend, dir string) string {
	if backend == BackendSQLite {
		return filepath.Join(dir, DefaultDatabaseFile)
	}
	return filepath.Join(dir, DefaultCredentialFile)
}

// Open returns the backend described by opts.
func Open(opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file store: path is required")
		}
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFileStore(fs, opts.Path), nil
	case BackendSQLite:
		return OpenSQLite(opts.Path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// =============================================================================
// CHANGE TRACKING
// =============================================================================

// tracker remembers the last credential this process read or wrote so that
// the process's own writes are not reported as external changes.
type tracker struct {
	mu      sync.Mutex
	known   bool
	value   string
	present bool
}

// observe records the current stored state and reports whether it differs
// from the previously observed one.
func (t *tracker) observe(value string, present bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := !t.known || t.value != value || t.present != present
	t.known, t.value, t.present = true, value, present
	return changed
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	credential string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements CredentialStore.
func (m *MemoryStore) Load(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == "" {
		return "", ErrNoCredential
	}
	return m.credential, nil
}

// Save implements CredentialStore.
func (m *MemoryStore) Save(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrEmptyCredential
	}
	m.mu.Lock()
	m.credential = credential
	m.mu.Unlock()
	return nil
}

// Delete implements CredentialStore.
func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.credential = ""
	m.mu.Unlock()
	return nil
}

// Close implements Backend.
func (m *MemoryStore) Close() error { return nil }
