// Package unittest provides an in-memory unit.Host for tests.
package unittest

import (
	"fmt"
	"sync"

	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Visit is one advice woven into the listed methods.
type Visit struct {
	Advice  string
	Methods []string
}

// Builder records visits against the methods of one unit.
type Builder struct {
	u      *unit.Unit
	Visits []Visit
}

// NewBuilder returns an empty builder for u.
func NewBuilder(u *unit.Unit) *Builder {
	return &Builder{u: u}
}

// Visit implements unit.Builder.
func (b *Builder) Visit(advice string, filter unit.MethodFilter) unit.Builder {
	v := Visit{Advice: advice}
	for _, m := range b.u.Methods {
		if filter(m) {
			v.Methods = append(v.Methods, m.Name)
		}
	}
	next := &Builder{u: b.u, Visits: make([]Visit, 0, len(b.Visits)+1)}
	next.Visits = append(next.Visits, b.Visits...)
	next.Visits = append(next.Visits, v)
	return next
}

// Host is a fake unit.Host. Retransform calls the transformer synchronously
// and records what was applied.
type Host struct {
	transformer unit.Transformer

	units   []*unit.Unit
	current map[unit.ID][]Visit
	fail    map[unit.ID]error

	calls   [][]unit.ID
	applied []unit.ID

	mu sync.Mutex
}

// NewHost creates a host with the given units already loaded.
func NewHost(units ...*unit.Unit) *Host {
	h := &Host{
		current: make(map[unit.ID][]Visit),
		fail:    make(map[unit.ID]error),
	}
	h.units = append(h.units, units...)
	return h
}

// SetTransformer implements unit.Host.
func (h *Host) SetTransformer(t unit.Transformer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transformer = t
}

// LoadedUnits implements unit.Host.
func (h *Host) LoadedUnits() []*unit.Unit {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*unit.Unit, len(h.units))
	copy(out, h.units)
	return out
}

// Define simulates the first definition of u: it becomes loaded and the
// transformer is invoked with redefinition=false.
func (h *Host) Define(u *unit.Unit) {
	h.mu.Lock()
	h.units = append(h.units, u)
	t := h.transformer
	h.mu.Unlock()

	if t == nil {
		return
	}
	b := NewBuilder(u)
	if out, ok := t.Transform(u, b, false).(*Builder); ok && out != nil {
		h.mu.Lock()
		h.current[u.ID] = out.Visits
		h.mu.Unlock()
	}
}

// Unload removes u from the loaded set.
func (h *Host) Unload(id unit.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, u := range h.units {
		if u.ID == id {
			h.units = append(h.units[:i], h.units[i+1:]...)
			break
		}
	}
	delete(h.current, id)
}

// FailOn makes every batch containing id fail with err. A nil err clears it.
func (h *Host) FailOn(id unit.ID, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.fail, id)
		return
	}
	h.fail[id] = err
}

// Retransform implements unit.Host. A batch containing a failing unit is
// rejected as a whole before any unit is transformed.
func (h *Host) Retransform(units ...*unit.Unit) error {
	h.mu.Lock()
	ids := make([]unit.ID, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	h.calls = append(h.calls, ids)
	t := h.transformer
	for _, u := range units {
		if err, ok := h.fail[u.ID]; ok {
			h.mu.Unlock()
			return fmt.Errorf("retransform %s: %w", u.Name, err)
		}
	}
	h.mu.Unlock()

	if t == nil {
		return fmt.Errorf("no transformer installed")
	}

	for _, u := range units {
		out := t.Transform(u, NewBuilder(u), true)
		var visits []Visit
		if b, ok := out.(*Builder); ok && b != nil {
			visits = b.Visits
		}
		h.mu.Lock()
		h.current[u.ID] = visits
		h.applied = append(h.applied, u.ID)
		h.mu.Unlock()
	}
	return nil
}

// Calls returns the IDs passed to each Retransform call, in call order.
func (h *Host) Calls() [][]unit.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]unit.ID, len(h.calls))
	for i, c := range h.calls {
		out[i] = append([]unit.ID(nil), c...)
	}
	return out
}

// Applied returns every unit that was transformed, in order.
func (h *Host) Applied() []unit.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]unit.ID(nil), h.applied...)
}

// Current returns the visits currently applied to id.
func (h *Host) Current(id unit.ID) []Visit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Visit(nil), h.current[id]...)
}

// Instrumented reports whether id currently carries any advice.
func (h *Host) Instrumented(id unit.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.current[id]) > 0
}

// Reset clears the recorded calls.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
	h.applied = nil
}
