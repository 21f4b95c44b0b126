// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"github.com/jeranaias/marquee-tui/internal/util"
)

// File permissions for the credential. The credential grants full account
// access, so only the owner may read it.
const (
	credentialFilePerm os.FileMode = 0600
	credentialDirPerm  os.FileMode = 0700
)

// FileStore keeps the credential in a single file.
type FileStore struct {
	fs   afero.Fs
	path string
	tracker
}

// NewFileStore returns a store for the file at path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Path implements Watchable.
func (f *FileStore) Path() string {
	return f.path
}

// Load implements CredentialStore.
func (f *FileStore) Load(ctx context.Context) (string, error) {
	credential, err := f.read()
	if err != nil {
		return "", err
	}
	f.observe(credential, credential != "")
	if credential == "" {
		return "", ErrNoCredential
	}
	return credential, nil
}

// read returns the stored credential, or "" when absent.
func (f *FileStore) read() (string, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	f.ensureSecurePermissions()
	return strings.TrimSpace(string(data)), nil
}

// ensureSecurePermissions tightens a credential file left readable by others.
func (f *FileStore) ensureSecurePermissions() {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0077 != 0 {
		_ = f.fs.Chmod(f.path, credentialFilePerm)
	}
}

// Save implements CredentialStore.
func (f *FileStore) Save(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrEmptyCredential
	}
	if err := util.AtomicWriteFileWithDir(f.fs, f.path, []byte(credential+"\n"), credentialFilePerm, credentialDirPerm); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	f.observe(credential, true)
	return nil
}

// Delete implements CredentialStore. Deleting an absent credential succeeds.
func (f *FileStore) Delete(ctx context.Context) error {
	if err := f.fs.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete credential: %w", err)
	}
	f.observe("", false)
	return nil
}

// Refresh implements Watchable.
func (f *FileStore) Refresh(ctx context.Context) (Change, bool, error) {
	credential, err := f.read()
	if err != nil {
		return Change{}, false, err
	}
	change := Change{Credential: credential, Present: credential != ""}
	return change, f.observe(change.Credential, change.Present), nil
}

// Close implements Backend.
func (f *FileStore) Close() error { return nil }
