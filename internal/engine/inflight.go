package engine

import (
	"os"
	"sync"
)

// inflight tracks destinations that are being written, so an interrupted run
// can remove anything a task did not get to clean up itself.
type inflight struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{paths: make(map[string]struct{})}
}

func (r *inflight) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path] = struct{}{}
}

func (r *inflight) done(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

// cleanup removes every registered path and returns how many were removed.
func (r *inflight) cleanup() int {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	clear(r.paths)
	r.mu.Unlock()

	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed
}
