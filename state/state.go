package state

import (
	"slices"

	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/scope"
	"github.com/inspectIT/inspectit-ocelot-sub003/sensor"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// State is the instrumentation of one unit: active sensors in sensor list
// order, active rules sorted by name, and the configuration they were
// derived from.
type State struct {
	Config  *resolve.Configuration
	Sensors []sensor.Sensor
	Rules   []*scope.Rule
}

// None is the state of a unit without any instrumentation.
var None = &State{}

// IsNone reports whether s instruments nothing.
func (s *State) IsNone() bool {
	return s == nil || (len(s.Sensors) == 0 && len(s.Rules) == 0)
}

// SensorNames returns the names of the active sensors.
func (s *State) SensorNames() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.Sensors))
	for i, sn := range s.Sensors {
		out[i] = sn.Name()
	}
	return out
}

// RuleNames returns the names of the active rules.
func (s *State) RuleNames() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		out[i] = r.Name()
	}
	return out
}

// AppliedEvent reports that the host applied a representation of Unit.
// State is what the representation carries. Err is set when building the
// modification failed and the original representation was kept.
type AppliedEvent struct {
	Unit  *unit.Unit
	State *State
	Err   error
}

// Engine decides the desired state of units and compares it with the
// applied state.
type Engine struct {
	cache   *AppliedCache
	sensors []sensor.Sensor
}

// NewEngine creates an engine querying sensors, in order.
func NewEngine(sensors []sensor.Sensor) *Engine {
	return &Engine{
		cache:   NewAppliedCache(),
		sensors: sensors,
	}
}

// Cache returns the applied-state cache.
func (e *Engine) Cache() *AppliedCache { return e.cache }

// Sensors returns the sensors the engine queries.
func (e *Engine) Sensors() []sensor.Sensor { return e.sensors }

// Desired computes the state u should carry under cfg.
func (e *Engine) Desired(u *unit.Unit, cfg *resolve.Configuration) *State {
	if !Instrumentable(u, cfg) {
		return None
	}

	st := &State{Config: cfg}
	for _, s := range e.sensors {
		if s.ShouldInstrument(u, cfg) {
			st.Sensors = append(st.Sensors, s)
		}
	}
	for _, r := range cfg.Rules {
		if r.Matches(u) {
			st.Rules = append(st.Rules, r)
		}
	}
	if st.IsNone() {
		return None
	}
	return st
}

// Instrumentable reports whether u may be modified at all under cfg.
func Instrumentable(u *unit.Unit, cfg *resolve.Configuration) bool {
	switch {
	case u == nil || !u.Modifiable:
		return false
	case cfg.Support.MatchName(u.Name):
		return false
	case u.Loader == nil && cfg.IgnoredBootstrap.MatchName(u.Name):
		return false
	case cfg.Ignored.MatchName(u.Name):
		return false
	case cfg.ExcludeLambdas && u.Lambda():
		return false
	}
	return true
}

// IsSameAs reports whether a unit carrying a needs no modification to carry
// b: both activate the same sensors, none of those sensors requires a change
// between the two configurations, and the scopes selecting the hooked
// methods of u are identical.
func (e *Engine) IsSameAs(u *unit.Unit, a, b *State) bool {
	if a.IsNone() || b.IsNone() {
		return a.IsNone() && b.IsNone()
	}
	if !slices.Equal(a.SensorNames(), b.SensorNames()) {
		return false
	}
	for _, s := range a.Sensors {
		if s.RequiresInstrumentationChange(u, a.Config, b.Config) {
			return false
		}
	}
	return slices.Equal(scope.Fingerprints(u, a.Rules), scope.Fingerprints(u, b.Rules))
}

// RequiresRetransformation reports whether the applied state of u differs
// from its desired state under cfg.
func (e *Engine) RequiresRetransformation(u *unit.Unit, cfg *resolve.Configuration) bool {
	_, differs := e.Check(u, cfg)
	return differs
}

// Check returns the desired state of u and whether it differs from the
// applied one.
func (e *Engine) Check(u *unit.Unit, cfg *resolve.Configuration) (*State, bool) {
	desired := e.Desired(u, cfg)
	applied, ok := e.cache.Get(u.ID)
	if !ok {
		applied = None
	}
	return desired, !e.IsSameAs(u, applied, desired)
}

// OnApplied records the state the host just applied.
func (e *Engine) OnApplied(ev AppliedEvent) {
	e.cache.Record(ev.Unit, ev.State)
}

// Forget drops everything known about an unloaded unit.
func (e *Engine) Forget(id unit.ID) {
	e.cache.Remove(id)
}
