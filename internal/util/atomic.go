// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// RELIABILITY: Atomic write with fsync prevents a torn credential or config
// file on crash.
//
// AtomicWriteFile writes data to path on fs using the following pattern:
// 1. Write to a temporary file in the same directory
// 2. Sync the data to disk
// 3. Close the file and set its permissions
// 4. Rename the temp file over the target path
//
// On crash, either the old file or the new complete file exists.
func AtomicWriteFile(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFileWithDir(fs, path, data, perm, 0755)
}

// AtomicWriteFileWithDir is like AtomicWriteFile but also sets the
// permissions of the parent directory if it needs to be created.
func AtomicWriteFileWithDir(fs afero.Fs, path string, data []byte, filePerm, dirPerm os.FileMode) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	f, err := afero.TempFile(fs, dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			fs.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}
	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fs.Chmod(tempPath, filePerm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := fs.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
