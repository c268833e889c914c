package state

import (
	"sort"
	"sync"

	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Entry is one applied-state record.
type Entry struct {
	Unit  *unit.Unit
	State *State
}

// AppliedCache maps units to their last applied state. A missing entry means
// None. Entries live until the state becomes None or the unit is forgotten
// after unloading.
type AppliedCache struct {
	entries map[unit.ID]Entry
	mu      sync.RWMutex
}

// NewAppliedCache creates an empty cache.
func NewAppliedCache() *AppliedCache {
	return &AppliedCache{entries: make(map[unit.ID]Entry)}
}

// Get returns the applied state of id.
func (c *AppliedCache) Get(id unit.ID) (*State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.State, ok
}

// Record stores s for u, or removes the entry when s is None.
func (c *AppliedCache) Record(u *unit.Unit, s *State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.IsNone() {
		delete(c.entries, u.ID)
		return
	}
	c.entries[u.ID] = Entry{Unit: u, State: s}
}

// Remove deletes the entry of id.
func (c *AppliedCache) Remove(id unit.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of instrumented units.
func (c *AppliedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns the current entries ordered by unit ID.
func (c *AppliedCache) Snapshot() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Unit.ID < out[j].Unit.ID })
	return out
}
