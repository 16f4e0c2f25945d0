package engine

import "sync"

// Tracker maps source inodes to the destination that first claimed them,
// so later members of the group are linked instead of copied. The planner
// uses one to pick each group's leader; the executor uses another to record
// which destinations actually hold the group's data.
type Tracker struct {
	mu    sync.Mutex
	dests map[DevIno]string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{dests: make(map[DevIno]string)}
}

// Claim registers dst for id if the group has no destination yet. It returns
// the group's canonical destination and whether this call set it.
func (t *Tracker) Claim(id DevIno, dst string) (canonical string, first bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.dests[id]; ok {
		return existing, false
	}
	t.dests[id] = dst
	return dst, true
}

// Lookup returns the canonical destination for id.
func (t *Tracker) Lookup(id DevIno) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dst, ok := t.dests[id]
	return dst, ok
}
