package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

type trackedPath struct {
	path string
	dir  bool
}

// Tracker records intermediate artifacts created during one conversion and
// removes them all in ReleaseAll. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	paths []trackedPath
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track registers a file for removal.
func (t *Tracker) Track(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, trackedPath{path: path})
}

// TrackDir registers a directory; it is removed with everything in it.
func (t *Tracker) TrackDir(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, trackedPath{path: path, dir: true})
}

// Len reports how many paths are currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.paths)
}

// ReleaseAll removes every tracked path, newest first. Paths that no longer
// exist are ignored; other failures are joined into the returned error after
// every path has been attempted.
func (t *Tracker) ReleaseAll() error {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	var errs []error
	for i := len(paths) - 1; i >= 0; i-- {
		p := paths[i]
		var err error
		if p.dir {
			err = os.RemoveAll(p.path)
		} else {
			err = os.Remove(p.path)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("storage: release %s: %w", p.path, err))
		}
	}
	return errors.Join(errs...)
}
