package reconcile

import (
	"container/list"
	"sync"

	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// PendingSet is an insertion-ordered set of units awaiting a check. It is
// safe for concurrent use.
type PendingSet struct {
	order *list.List
	index map[unit.ID]*list.Element
	mu    sync.Mutex
}

// NewPendingSet creates an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{
		order: list.New(),
		index: make(map[unit.ID]*list.Element),
	}
}

// Add appends u unless it is already pending.
func (p *PendingSet) Add(u *unit.Unit) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[u.ID]; ok {
		return false
	}
	p.index[u.ID] = p.order.PushBack(u)
	return true
}

// Pop removes and returns the oldest unit.
func (p *PendingSet) Pop() (*unit.Unit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	front := p.order.Front()
	if front == nil {
		return nil, false
	}
	u := p.order.Remove(front).(*unit.Unit)
	delete(p.index, u.ID)
	return u, true
}

// Remove drops id if it is pending.
func (p *PendingSet) Remove(id unit.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.index[id]; ok {
		p.order.Remove(e)
		delete(p.index, id)
	}
}

// Contains reports whether id is pending.
func (p *PendingSet) Contains(id unit.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.index[id]
	return ok
}

// Len returns the number of pending units.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.index)
}
