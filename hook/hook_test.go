package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/state"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit/unittest"
)

func desiredFor(t *testing.T) (*state.Engine, *resolve.Configuration) {
	t.Helper()
	raw := config.Default()
	raw.Instrumentation.Scopes["runs"] = config.ScopeSettings{
		Methods: []config.MethodMatcherSettings{{NameMatcherSettings: config.NameMatcherSettings{Name: "run"}}},
	}
	raw.Instrumentation.Scopes["all"] = config.ScopeSettings{
		Type: &config.NameMatcherSettings{Name: "com.acme.", MatcherMode: config.StartsWith},
	}
	raw.Instrumentation.Rules["a-timing"] = config.RuleSettings{
		Scopes:  map[string]bool{"runs": true},
		Actions: []string{"timer", "record"},
	}
	raw.Instrumentation.Rules["b-trace"] = config.RuleSettings{
		Scopes:  map[string]bool{"all": true},
		Actions: []string{"span", "record"},
	}
	return state.NewEngine(nil), resolve.Resolve(raw)
}

func TestCompute(t *testing.T) {
	e, cfg := desiredFor(t)
	svc := unittest.Type("com.acme.Service", nil, "run", "stop")

	got := Compute(svc, e.Desired(svc, cfg))
	require.Len(t, got, 2)

	run := got["run()"]
	require.NotNil(t, run)
	assert.Equal(t, []string{"a-timing", "b-trace"}, run.Rules)
	assert.Equal(t, []string{"timer", "record", "span"}, run.Actions)

	stop := got["stop()"]
	require.NotNil(t, stop)
	assert.Equal(t, []string{"b-trace"}, stop.Rules)

	assert.Nil(t, Compute(svc, state.None))
}

func TestUpdate_CommitIsAtomic(t *testing.T) {
	e, cfg := desiredFor(t)
	a := unittest.Type("com.acme.A", nil, "run")
	b := unittest.Type("com.acme.B", nil, "stop")
	m := NewManager()

	up := m.StartUpdate()
	up.Refresh(a, e.Desired(a, cfg))
	up.Refresh(b, e.Desired(b, cfg))
	assert.Equal(t, 2, up.Len())

	_, ok := m.Lookup(a.ID, "run()")
	assert.False(t, ok, "bindings are invisible before commit")

	up.Commit()
	_, ok = m.Lookup(a.ID, "run()")
	assert.True(t, ok)
	_, ok = m.Lookup(b.ID, "stop()")
	assert.True(t, ok)
	assert.NotEqual(t, up.ID.String(), m.StartUpdate().ID.String())
}

func TestUpdate_NoneRemoves(t *testing.T) {
	e, cfg := desiredFor(t)
	a := unittest.Type("com.acme.A", nil, "run")
	m := NewManager()

	up := m.StartUpdate()
	up.Refresh(a, e.Desired(a, cfg))
	up.Commit()
	require.Len(t, m.Bindings(a.ID), 1)

	up = m.StartUpdate()
	up.Refresh(a, state.None)
	up.Commit()
	assert.Empty(t, m.Bindings(a.ID))
}

func TestForget(t *testing.T) {
	e, cfg := desiredFor(t)
	a := unittest.Type("com.acme.A", nil, "run")
	b := unittest.Type("com.acme.B", nil, "run")
	m := NewManager()

	up := m.StartUpdate()
	up.Refresh(a, e.Desired(a, cfg))
	up.Commit()

	up = m.StartUpdate()
	up.Refresh(b, e.Desired(b, cfg))
	m.Forget(a.ID)
	m.Forget(b.ID)
	up.Commit()

	assert.Empty(t, m.Bindings(a.ID))
	assert.Empty(t, m.Bindings(b.ID))
}
