// Package ordering computes which class-loader types must receive support
// access before a unit they define can be instrumented.
package ordering

import (
	"sync"

	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Resolver remembers the loader types that were handed out as
// prerequisites. A type is returned at most once; the mark is only dropped
// when the type is unloaded.
type Resolver struct {
	marked map[unit.ID]bool
	mu     sync.Mutex
}

// NewResolver creates a resolver with no marked types.
func NewResolver() *Resolver {
	return &Resolver{marked: make(map[unit.ID]bool)}
}

// Prerequisites returns the loader types that must be modified before u, in
// application order, and marks them. Ancestors come before descendants and
// the loader that defined a type comes before the type itself. Nothing is
// returned unless class-loader delegation is enabled.
func (r *Resolver) Prerequisites(u *unit.Unit, cfg *resolve.Configuration) []*unit.Unit {
	if u == nil || u.Loader == nil || !cfg.Special.ClassLoaderDelegation {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w := walker{marked: r.marked, visited: make(map[unit.ID]bool)}
	w.hierarchy(u.Loader)
	return w.out
}

// Supported reports whether u was marked.
func (r *Resolver) Supported(u *unit.Unit) bool {
	if u == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.marked[u.ID]
}

// Forget drops the mark of an unloaded type.
func (r *Resolver) Forget(id unit.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.marked, id)
}

type walker struct {
	marked  map[unit.ID]bool
	visited map[unit.ID]bool
	out     []*unit.Unit
}

// hierarchy visits t and its superclasses, root first.
func (w *walker) hierarchy(t *unit.Unit) {
	anc := t.Ancestors()
	for i := len(anc) - 1; i >= 0; i-- {
		w.visit(anc[i])
	}
	w.visit(t)
}

func (w *walker) visit(t *unit.Unit) {
	if w.visited[t.ID] {
		return
	}
	w.visited[t.ID] = true

	if t.Loader != nil {
		w.hierarchy(t.Loader)
	}
	if t.ClassLoader && t.Modifiable && !w.marked[t.ID] {
		w.marked[t.ID] = true
		w.out = append(w.out, t)
	}
}
