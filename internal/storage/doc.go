// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the session credential for marquee.
//
// Exactly one value is stored: the bearer credential issued by the identity
// service. Three backends implement CredentialStore:
//
//   - FileStore: a 0600 file written atomically (default ~/.marquee/credential)
//   - SQLiteStore: a row in ~/.marquee/marquee.db
//   - MemoryStore: process-local, for tests and --ephemeral runs
//
// There is no locking across processes. The last writer wins, and a
// Watcher reports credential changes made by other marquee instances.
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Backend: storage.BackendFile, Path: path})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	credential, err := store.Load(ctx)
//	if errors.Is(err, storage.ErrNoCredential) {
//		// show the login screen
//	}
package storage
