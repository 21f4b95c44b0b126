// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SHARED CONTRACT
// =============================================================================

func testStoreContract(t *testing.T, store CredentialStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Save(ctx, "  first.token.value \n"))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "first.token.value", got)

	require.NoError(t, store.Save(ctx, "second.token.value"))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "second.token.value", got, "last writer wins")

	require.ErrorIs(t, store.Save(ctx, "   "), ErrEmptyCredential)

	require.NoError(t, store.Delete(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Delete(ctx), "delete is idempotent")
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	testStoreContract(t, NewFileStore(afero.NewMemMapFs(), "/home/u/.marquee/credential"))
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "marquee.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testStoreContract(t, store)
}

// =============================================================================
// FILE STORE
// =============================================================================

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := filepath.Join(t.TempDir(), ".marquee")
	path := filepath.Join(dir, "credential")
	store := NewFileStore(afero.NewOsFs(), path)

	require.NoError(t, store.Save(context.Background(), "tok"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestFileStore_TightensLoosePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "credential")
	require.NoError(t, os.WriteFile(path, []byte("tok\n"), 0644))

	got, err := NewFileStore(afero.NewOsFs(), path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_BlankFileIsNoCredential(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c", []byte("\n  \n"), 0600))

	_, err := NewFileStore(fs, "/c").Load(context.Background())
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestFileStore_ReadErrorIsNotNoCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential")
	require.NoError(t, os.Mkdir(path, 0700)) // a directory where the file should be

	_, err := NewFileStore(afero.NewOsFs(), path).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoCredential)
}

func TestFileStore_Refresh(t *testing.T) {
	fs := afero.NewMemMapFs()
	ours := NewFileStore(fs, "/c")
	theirs := NewFileStore(fs, "/c")
	ctx := context.Background()

	require.NoError(t, ours.Save(ctx, "mine"))
	_, changed, err := ours.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, changed, "own write is not an external change")

	require.NoError(t, theirs.Save(ctx, "other"))
	change, changed, err := ours.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, Change{Credential: "other", Present: true}, change)

	require.NoError(t, theirs.Delete(ctx))
	change, changed, err = ours.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.False(t, change.Present)
}

// =============================================================================
// SQLITE STORE
// =============================================================================

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "marquee.db")
	ctx := context.Background()

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "durable"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "durable", got)

	updated, err := second.UpdatedAt(ctx)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), updated, time.Minute)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(" ")
	require.Error(t, err)
}

// =============================================================================
// OPEN
// =============================================================================

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(Options{Backend: "file", Path: DefaultPath(BackendFile, dir), Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, b)

	b, err = Open(Options{Backend: "SQLite", Path: DefaultPath(BackendSQLite, dir)})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, b)
	require.Equal(t, filepath.Join(dir, "marquee.db"), b.(*SQLiteStore).Path())
	require.NoError(t, b.Close())

	b, err = Open(Options{Backend: BackendMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, b)

	_, err = Open(Options{Backend: "keychain"})
	require.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(Options{Backend: BackendFile})
	require.Error(t, err)
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcher_ReportsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential")
	ours := NewFileStore(afero.NewOsFs(), path)
	theirs := NewFileStore(afero.NewOsFs(), path)
	ctx := context.Background()
	require.NoError(t, ours.Save(ctx, "mine"))

	w, err := NewWatcher(ours, 20*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Watch(ctx))
	t.Cleanup(func() { w.Close() })

	require.NoError(t, theirs.Save(ctx, "theirs"))

	select {
	case c := <-w.Changes():
		require.Equal(t, Change{Credential: "theirs", Present: true}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for external write")
	}

	require.NoError(t, theirs.Delete(ctx))
	select {
	case c := <-w.Changes():
		require.False(t, c.Present)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for external delete")
	}
}

func TestWatcher_IgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential")
	store := NewFileStore(afero.NewOsFs(), path)
	ctx := context.Background()

	w, err := NewWatcher(store, 20*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Watch(ctx))
	t.Cleanup(func() { w.Close() })

	require.NoError(t, store.Save(ctx, "mine"))

	select {
	case c := <-w.Changes():
		t.Fatalf("unexpected change for own write: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_CloseClosesChanges(t *testing.T) {
	store := NewFileStore(afero.NewOsFs(), filepath.Join(t.TempDir(), "credential"))
	w, err := NewWatcher(store, 0, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Watch(context.Background()))

	require.NoError(t, w.Close())
	_, open := <-w.Changes()
	require.False(t, open)
	require.NoError(t, w.Close(), "close is idempotent")
}
