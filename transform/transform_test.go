package transform

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/sensor"
	"github.com/inspectIT/inspectit-ocelot-sub003/state"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit/unittest"
)

type staticConfig struct{ cfg *resolve.Configuration }

func (s staticConfig) Current() *resolve.Configuration { return s.cfg }

// namedSensor instruments the listed units. It fails or panics on demand.
type namedSensor struct {
	name  string
	units map[unit.ID]bool
	err   error
	panic bool
}

func (s *namedSensor) Name() string { return s.name }

func (s *namedSensor) ShouldInstrument(u *unit.Unit, _ *resolve.Configuration) bool {
	return s.units[u.ID]
}

func (s *namedSensor) RequiresInstrumentationChange(*unit.Unit, *resolve.Configuration, *resolve.Configuration) bool {
	return false
}

func (s *namedSensor) Instrument(_ *unit.Unit, _ *resolve.Configuration, b unit.Builder) (unit.Builder, error) {
	if s.panic {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return b.Visit(s.name, unit.AnyMethod), nil
}

type events struct {
	mu         sync.Mutex
	applied    []state.AppliedEvent
	discovered []*unit.Unit
}

func (e *events) OnApplied(ev state.AppliedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = append(e.applied, ev)
}

func (e *events) OnDiscovered(u *unit.Unit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discovered = append(e.discovered, u)
}

func traceConfig() *resolve.Configuration {
	raw := config.Default()
	raw.Instrumentation.Scopes["runs"] = config.ScopeSettings{
		Type:    &config.NameMatcherSettings{Name: "com.acme.", MatcherMode: config.StartsWith},
		Methods: []config.MethodMatcherSettings{{NameMatcherSettings: config.NameMatcherSettings{Name: "run"}}},
	}
	raw.Instrumentation.Scopes["runs-too"] = config.ScopeSettings{
		Methods: []config.MethodMatcherSettings{{NameMatcherSettings: config.NameMatcherSettings{Name: "run"}}},
	}
	raw.Instrumentation.Rules["a"] = config.RuleSettings{Scopes: map[string]bool{"runs": true}}
	raw.Instrumentation.Rules["b"] = config.RuleSettings{Scopes: map[string]bool{"runs-too": true}}
	return resolve.Resolve(raw)
}

type fixture struct {
	host   *unittest.Host
	engine *state.Engine
	hook   *Hook
	events *events
}

func newFixture(cfg *resolve.Configuration, sensors ...sensor.Sensor) *fixture {
	f := &fixture{
		host:   unittest.NewHost(),
		engine: state.NewEngine(sensors),
		events: &events{},
	}
	f.hook = New(f.host, staticConfig{cfg}, f.engine)
	f.hook.SubscribeApplied(f.engine)
	f.hook.SubscribeApplied(f.events)
	f.hook.SubscribeDiscovered(f.events)
	f.host.SetTransformer(f.hook)
	return f
}

func TestTransform_FirstDefinitionOnlyDiscovers(t *testing.T) {
	f := newFixture(traceConfig())
	svc := unittest.Type("com.acme.Service", nil, "run")

	f.host.Define(svc)

	assert.Equal(t, []*unit.Unit{svc}, f.events.discovered)
	assert.Empty(t, f.events.applied)
	assert.False(t, f.host.Instrumented(svc.ID))
}

func TestTransform_SensorsThenSingleHook(t *testing.T) {
	svc := unittest.Type("com.acme.Service", nil, "run", "stop")
	s1 := &namedSensor{name: "first", units: map[unit.ID]bool{svc.ID: true}}
	s2 := &namedSensor{name: "second", units: map[unit.ID]bool{svc.ID: true}}
	f := newFixture(traceConfig(), s1, s2)

	require.NoError(t, f.host.Retransform(svc))

	visits := f.host.Current(svc.ID)
	require.Len(t, visits, 3)
	assert.Equal(t, "first", visits[0].Advice)
	assert.Equal(t, "second", visits[1].Advice)
	assert.Equal(t, unittest.Visit{Advice: unit.AdviceHook, Methods: []string{"run"}}, visits[2],
		"two rules match run but it is hooked once")

	require.Len(t, f.events.applied, 1)
	assert.Equal(t, []string{"first", "second"}, f.events.applied[0].State.SensorNames())
	assert.NoError(t, f.events.applied[0].Err)

	_, cached := f.engine.Cache().Get(svc.ID)
	assert.True(t, cached)
}

func TestTransform_NoopStillFiresApplied(t *testing.T) {
	f := newFixture(traceConfig())
	plain := unittest.Type("org.other.Plain", nil, "stop")

	require.NoError(t, f.host.Retransform(plain))

	assert.False(t, f.host.Instrumented(plain.ID))
	require.Len(t, f.events.applied, 1)
	assert.True(t, f.events.applied[0].State.IsNone())
}

func TestTransform_SensorFailureKeepsOriginal(t *testing.T) {
	svc := unittest.Type("com.acme.Service", nil, "run")
	tests := []struct {
		name   string
		failer *namedSensor
	}{
		{"error", &namedSensor{name: "bad", units: map[unit.ID]bool{svc.ID: true}, err: errors.New("no")}},
		{"panic", &namedSensor{name: "bad", units: map[unit.ID]bool{svc.ID: true}, panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good := &namedSensor{name: "good", units: map[unit.ID]bool{svc.ID: true}}
			f := newFixture(traceConfig(), good, tt.failer)

			require.NoError(t, f.host.Retransform(svc))

			assert.False(t, f.host.Instrumented(svc.ID), "visits of earlier sensors are discarded")
			require.Len(t, f.events.applied, 1)
			assert.Error(t, f.events.applied[0].Err)
			assert.True(t, f.events.applied[0].State.IsNone())
			assert.Equal(t, 0, f.engine.Cache().Len())
		})
	}
}

// checkPanicSensor panics while deciding whether to instrument a unit.
type checkPanicSensor struct{}

func (checkPanicSensor) Name() string { return "check-panic" }

func (checkPanicSensor) ShouldInstrument(*unit.Unit, *resolve.Configuration) bool {
	panic("cannot inspect unit")
}

func (checkPanicSensor) RequiresInstrumentationChange(*unit.Unit, *resolve.Configuration, *resolve.Configuration) bool {
	return false
}

func (checkPanicSensor) Instrument(_ *unit.Unit, _ *resolve.Configuration, b unit.Builder) (unit.Builder, error) {
	return b, nil
}

func TestTransform_DesiredStatePanicKeepsOriginal(t *testing.T) {
	svc := unittest.Type("com.acme.Service", nil, "run")
	f := newFixture(traceConfig(), checkPanicSensor{})
	f.host.Define(svc)

	require.NotPanics(t, func() { _ = f.host.Retransform(svc) })

	assert.False(t, f.host.Instrumented(svc.ID))
	require.Len(t, f.events.applied, 1)
	assert.Error(t, f.events.applied[0].Err)
	assert.True(t, f.events.applied[0].State.IsNone())
	assert.Equal(t, 0, f.engine.Cache().Len())
}

func TestShutdown_RemovesEverythingLoadersLast(t *testing.T) {
	loader := unittest.LoaderType("com.acme.Loader", nil, nil)
	a := unittest.Type("com.acme.A", loader, "run")
	b := unittest.Type("com.acme.B", loader, "run")
	c := unittest.Type("com.acme.C", loader, "run")
	s := &namedSensor{name: "s", units: map[unit.ID]bool{loader.ID: true, a.ID: true, b.ID: true, c.ID: true}}

	raw := config.Default()
	raw.Instrumentation.Internal.ShutdownBatchSize = 2
	f := newFixture(resolve.Resolve(raw), s)

	require.NoError(t, f.host.Retransform(loader, a, b, c))
	require.Equal(t, 4, f.engine.Cache().Len())
	f.host.Reset()

	require.NoError(t, f.hook.Shutdown(context.Background()))

	assert.Equal(t, 0, f.engine.Cache().Len())
	calls := f.host.Calls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0], 2)
	assert.Len(t, calls[1], 1)
	assert.Equal(t, []unit.ID{loader.ID}, calls[2])
	for _, id := range []unit.ID{loader.ID, a.ID, b.ID, c.ID} {
		assert.False(t, f.host.Instrumented(id))
	}

	assert.True(t, f.hook.ShuttingDown())
	require.NoError(t, f.host.Retransform(a))
	assert.False(t, f.host.Instrumented(a.ID), "nothing is instrumented after the flip")

	assert.Error(t, f.hook.Shutdown(context.Background()))
}

func TestShutdown_ResumesAfterCancel(t *testing.T) {
	loader := unittest.LoaderType("com.acme.Loader", nil, nil)
	a := unittest.Type("com.acme.A", loader, "run")
	s := &namedSensor{name: "s", units: map[unit.ID]bool{loader.ID: true, a.ID: true}}
	f := newFixture(resolve.Resolve(config.Default()), s)

	require.NoError(t, f.host.Retransform(loader, a))
	f.host.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.hook.Shutdown(ctx), context.Canceled)
	assert.True(t, f.hook.ShuttingDown())
	assert.True(t, f.host.Instrumented(loader.ID))

	require.NoError(t, f.hook.Shutdown(context.Background()))
	assert.Equal(t, []unit.ID{a.ID, loader.ID}, f.host.Applied())
	assert.Equal(t, 0, f.engine.Cache().Len())

	assert.Error(t, f.hook.Shutdown(context.Background()))
}

func TestShutdown_FailuresAreIsolated(t *testing.T) {
	x := unittest.Type("com.acme.X", nil, "run")
	y := unittest.Type("com.acme.Y", nil, "run")
	s := &namedSensor{name: "s", units: map[unit.ID]bool{x.ID: true, y.ID: true}}
	f := newFixture(resolve.Resolve(config.Default()), s)

	require.NoError(t, f.host.Retransform(x, y))
	f.host.FailOn(x.ID, errors.New("locked"))

	err := f.hook.Shutdown(context.Background())
	require.Error(t, err)

	assert.True(t, f.host.Instrumented(x.ID))
	assert.False(t, f.host.Instrumented(y.ID))
	assert.Equal(t, 1, f.engine.Cache().Len())
	assert.Len(t, f.host.Calls(), 4, "initial apply, failed batch, then one call per unit")
}

func TestApplyIsolated(t *testing.T) {
	x := unittest.Type("com.acme.X", nil, "run")
	y := unittest.Type("com.acme.Y", nil, "run")
	host := unittest.NewHost(x, y)
	host.SetTransformer(New(host, staticConfig{traceConfig()}, state.NewEngine(nil)))
	host.FailOn(x.ID, errors.New("verify error"))

	batch := ApplyIsolated(host, []*unit.Unit{x, y}, nil)
	require.NotNil(t, batch)
	assert.Equal(t, []string{"com.acme.X"}, batch.Units())
	assert.True(t, host.Instrumented(y.ID))

	assert.Nil(t, ApplyIsolated(host, nil, nil))
}
