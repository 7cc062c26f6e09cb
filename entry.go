// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package appshell

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EntrySource supplies the contents of the entry document, that is, the
// application shell served on all routes not otherwise matched.
type EntrySource interface {
	Read() ([]byte, error)
}

// DiskEntry reads the entry document from disk on each and every call. There
// is no in-memory caching, so a freshly deployed entry document is served
// from the very next request on, at the price of a disk read per fallback
// request.
type DiskEntry struct {
	Path string
}

var _ EntrySource = (*DiskEntry)(nil)

// Read returns the current contents of the entry document, or an error
// wrapping ErrEntryUnavailable.
func (e *DiskEntry) Read() ([]byte, error) {
	contents, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntryUnavailable, err)
	}
	return contents, nil
}

// WatchedEntry caches the entry document in memory and drops its cache
// whenever the file gets written, (re)created, removed, or renamed. As editors
// and deployment tools tend to atomically replace files, the parent directory
// is watched instead of the file itself.
type WatchedEntry struct {
	path    string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	contents []byte // nil when not cached.
	closed   bool
}

var _ EntrySource = (*WatchedEntry)(nil)

// NewWatchedEntry returns a new caching entry document source for the
// specified path. The watcher's event loop is run using the passed FaultSink
// so that any fault inside the loop gets properly reported. Callers must
// Close the WatchedEntry when done.
func NewWatchedEntry(path string, faults *FaultSink) (*WatchedEntry, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot watch entry document, reason: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("cannot watch entry document directory, reason: %w", err)
	}
	e := &WatchedEntry{
		path:    path,
		watcher: watcher,
	}
	faults.Go(e.watch)
	return e, nil
}

// Read returns the cached entry document contents, (re)reading them from disk
// only if there is no valid cached copy. Read errors are never cached.
func (e *WatchedEntry) Read() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.contents != nil {
		return e.contents, nil
	}
	contents, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntryUnavailable, err)
	}
	e.contents = contents
	return contents, nil
}

// Close stops watching the entry document. Close is idempotent.
func (e *WatchedEntry) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.contents = nil
	return e.watcher.Close()
}

func (e *WatchedEntry) invalidate() {
	e.mu.Lock()
	e.contents = nil
	e.mu.Unlock()
}

// watch drops the cached contents on any change to the entry document. When
// the watcher reports an error we cannot be sure to have seen all changes, so
// we drop the cache then too.
func (e *WatchedEntry) watch() {
	for {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != e.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				e.invalidate()
			}
		case _, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.invalidate()
		}
	}
}
