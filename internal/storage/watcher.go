// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events an atomic write produces.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports credential changes made by other processes.
//
// The parent directory is watched rather than the file itself because
// atomic writes replace the file by rename.
type Watcher struct {
	store    Watchable
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      zerolog.Logger

	changes chan Change
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWatcher creates a watcher for store. Call Watch to start it.
func NewWatcher(store Watchable, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		store:    store,
		fsw:      fsw,
		debounce: debounce,
		log:      log.With().Str("component", "storage.watcher").Logger(),
		changes:  make(chan Change, 1),
	}, nil
}

// Changes delivers external credential changes. Only the latest pending
// change is kept.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Watch starts watching until ctx ends or Close is called.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Close stops the watcher and closes the Changes channel.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		err = w.fsw.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("file watcher error")

		case <-fire:
			fire = nil
			change, changed, err := w.store.Refresh(ctx)
			if err != nil {
				w.log.Warn().Err(err).Msg("re-read credential after change")
				continue
			}
			if !changed {
				continue
			}
			w.log.Info().Bool("present", change.Present).Msg("credential changed externally")
			w.publish(change)
		}
	}
}

// matches reports whether an event concerns the store's files, including
// SQLite's -wal and -journal companions.
func (w *Watcher) matches(name string) bool {
	return strings.HasPrefix(filepath.Base(name), filepath.Base(w.store.Path()))
}

// publish replaces any undelivered change with the new one.
func (w *Watcher) publish(c Change) {
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- c:
	default:
	}
}
