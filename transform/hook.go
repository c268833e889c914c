package transform

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/scope"
	"github.com/inspectIT/inspectit-ocelot-sub003/sensor"
	"github.com/inspectIT/inspectit-ocelot-sub003/state"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// ConfigSource returns the current configuration snapshot.
type ConfigSource interface {
	Current() *resolve.Configuration
}

// AppliedObserver receives an event after every redefinition.
type AppliedObserver interface {
	OnApplied(e state.AppliedEvent)
}

// DiscoveryObserver receives units defined for the first time.
type DiscoveryObserver interface {
	OnDiscovered(u *unit.Unit)
}

// Hook is the unit.Transformer installed on the host.
type Hook struct {
	host    unit.Host
	configs ConfigSource
	engine  *state.Engine
	log     *zap.Logger

	applied    []AppliedObserver
	discovered []DiscoveryObserver
	obsMu      sync.RWMutex

	// mu is read-held by every Transform call and write-held to flip
	// shuttingDown.
	mu           sync.RWMutex
	shuttingDown bool

	sweepMu sync.Mutex
	sweep   *sweep
}

// New creates a hook. It does not install itself on the host.
func New(host unit.Host, configs ConfigSource, engine *state.Engine) *Hook {
	return &Hook{
		host:    host,
		configs: configs,
		engine:  engine,
		log:     Logger(),
	}
}

// SubscribeApplied adds an observer for applied events.
func (h *Hook) SubscribeApplied(o AppliedObserver) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.applied = append(h.applied, o)
}

// SubscribeDiscovered adds an observer for discovered units.
func (h *Hook) SubscribeDiscovered(o DiscoveryObserver) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.discovered = append(h.discovered, o)
}

// ShuttingDown reports whether the shutdown sweep has started.
func (h *Hook) ShuttingDown() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.shuttingDown
}

// Transform implements unit.Transformer.
func (h *Hook) Transform(u *unit.Unit, b unit.Builder, redefinition bool) unit.Builder {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !redefinition {
		h.notifyDiscovered(u)
		return b
	}

	desired := state.None
	var err error
	if !h.shuttingDown {
		desired, err = h.desired(u)
	}

	var out unit.Builder
	if err == nil {
		out, err = instrument(u, desired, b)
	}
	if err != nil {
		h.log.Warn("instrumentation aborted, keeping original representation",
			zap.String("unit", u.Name),
			zap.Error(err))
		h.notifyApplied(state.AppliedEvent{Unit: u, State: state.None, Err: err})
		return b
	}

	h.notifyApplied(state.AppliedEvent{Unit: u, State: desired})
	return out
}

// desired computes the desired state of u, turning a sensor panic into an
// error.
func (h *Hook) desired(u *unit.Unit) (s *state.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = errors.New(errors.PhaseTransform, errors.KindSensorFailed).
				Unit(string(u.ID)).
				Detail("panic: %v", r).
				Build()
		}
	}()
	return h.engine.Desired(u, h.configs.Current()), nil
}

// instrument applies every active sensor in order, then hooks the methods
// accepted by any active rule once.
func instrument(u *unit.Unit, desired *state.State, b unit.Builder) (unit.Builder, error) {
	if desired.IsNone() {
		return b, nil
	}

	out := b
	for _, s := range desired.Sensors {
		next, err := safeInstrument(s, u, desired.Config, out)
		if err != nil {
			return nil, err
		}
		out = next
	}

	if len(desired.Rules) > 0 {
		out = out.Visit(unit.AdviceHook, scope.UnionFilter(u, desired.Rules))
	}

	if f, ok := out.(unit.Finisher); ok {
		finished, err := f.Finish()
		if err != nil {
			return nil, errors.New(errors.PhaseTransform, errors.KindCompileFailed).
				Unit(string(u.ID)).
				Cause(err).
				Build()
		}
		out = finished
	}
	return out, nil
}

// safeInstrument runs one sensor, turning panics into errors.
func safeInstrument(s sensor.Sensor, u *unit.Unit, cfg *resolve.Configuration, in unit.Builder) (out unit.Builder, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.SensorFailed(string(u.ID), s.Name(), fmt.Errorf("panic: %v", r))
		}
	}()

	out, err = s.Instrument(u, cfg, in)
	if err != nil {
		return nil, errors.SensorFailed(string(u.ID), s.Name(), err)
	}
	if out == nil {
		return nil, errors.SensorFailed(string(u.ID), s.Name(), fmt.Errorf("returned no builder"))
	}
	return out, nil
}

func (h *Hook) notifyApplied(e state.AppliedEvent) {
	h.obsMu.RLock()
	defer h.obsMu.RUnlock()
	for _, o := range h.applied {
		o.OnApplied(e)
	}
}

func (h *Hook) notifyDiscovered(u *unit.Unit) {
	h.obsMu.RLock()
	defer h.obsMu.RUnlock()
	for _, o := range h.discovered {
		o.OnDiscovered(u)
	}
}
