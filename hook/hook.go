package hook

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/scope"
	"github.com/inspectIT/inspectit-ocelot-sub003/state"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Binding is the hook of one method.
type Binding struct {
	Unit    unit.ID
	Method  string
	Rules   []string
	Actions []string
}

// bindings maps a unit to its hooked methods, keyed by signature.
type bindings map[unit.ID]map[string]*Binding

// Manager holds the committed bindings.
type Manager struct {
	current atomic.Pointer[bindings]
	active  *Update
	mu      sync.Mutex
}

// NewManager creates a manager without bindings.
func NewManager() *Manager {
	m := &Manager{}
	empty := bindings{}
	m.current.Store(&empty)
	return m
}

// Lookup returns the binding of the method with the given signature.
func (m *Manager) Lookup(id unit.ID, signature string) (*Binding, bool) {
	b, ok := (*m.current.Load())[id][signature]
	return b, ok
}

// Bindings returns the committed bindings of id.
func (m *Manager) Bindings(id unit.ID) []*Binding {
	methods := (*m.current.Load())[id]
	out := make([]*Binding, 0, len(methods))
	for _, b := range methods {
		out = append(out, b)
	}
	return out
}

// StartUpdate opens an update session.
func (m *Manager) StartUpdate() *Update {
	u := &Update{
		ID:      uuid.New(),
		manager: m,
		changes: make(bindings),
	}
	m.mu.Lock()
	m.active = u
	m.mu.Unlock()
	return u
}

// Forget drops the bindings of an unloaded unit, including any change an
// open session holds for it.
func (m *Manager) Forget(id unit.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		delete(m.active.changes, id)
	}
	cur := *m.current.Load()
	if _, ok := cur[id]; !ok {
		return
	}
	next := make(bindings, len(cur))
	for k, v := range cur {
		if k != id {
			next[k] = v
		}
	}
	m.current.Store(&next)
}

// Update is an open session. It is used by one goroutine at a time.
type Update struct {
	manager *Manager
	changes bindings
	ID      uuid.UUID
}

// Refresh recomputes the bindings of u for desired. A None state removes
// all bindings of u.
func (up *Update) Refresh(u *unit.Unit, desired *state.State) {
	next := Compute(u, desired)

	up.manager.mu.Lock()
	defer up.manager.mu.Unlock()
	up.changes[u.ID] = next
}

// Len returns the number of units refreshed in this session.
func (up *Update) Len() int {
	up.manager.mu.Lock()
	defer up.manager.mu.Unlock()
	return len(up.changes)
}

// Commit publishes every refreshed binding atomically and closes the
// session.
func (up *Update) Commit() {
	m := up.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := *m.current.Load()
	next := make(bindings, len(cur)+len(up.changes))
	for k, v := range cur {
		next[k] = v
	}
	for id, methods := range up.changes {
		if len(methods) == 0 {
			delete(next, id)
			continue
		}
		next[id] = methods
	}
	m.current.Store(&next)
	if m.active == up {
		m.active = nil
	}

	Logger().Debug("hook update committed",
		zap.String("session", up.ID.String()),
		zap.Int("units", len(up.changes)))
}

// Compute returns the bindings desired places on u, keyed by method
// signature. Each method is bound once, with the actions of every rule
// whose scopes accept it.
func Compute(u *unit.Unit, desired *state.State) map[string]*Binding {
	if desired.IsNone() || len(desired.Rules) == 0 {
		return nil
	}

	filters := make([]unit.MethodFilter, len(desired.Rules))
	for i, r := range desired.Rules {
		filters[i] = r.MethodFilter(u)
	}

	out := make(map[string]*Binding)
	for _, m := range u.Methods {
		var b *Binding
		seen := make(map[string]bool)
		for i, r := range desired.Rules {
			if !filters[i](m) {
				continue
			}
			if b == nil {
				b = &Binding{Unit: u.ID, Method: m.Signature()}
			}
			b.Rules = append(b.Rules, r.Name())
			b.Actions = appendActions(b.Actions, r, seen)
		}
		if b != nil {
			out[m.Signature()] = b
		}
	}
	return out
}

func appendActions(dst []string, r *scope.Rule, seen map[string]bool) []string {
	for _, a := range r.Actions() {
		if !seen[a] {
			seen[a] = true
			dst = append(dst, a)
		}
	}
	return dst
}
