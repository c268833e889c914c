package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit/unittest"
)

type marks map[unit.ID]bool

func (m marks) Supported(u *unit.Unit) bool { return m[u.ID] }

func TestAll(t *testing.T) {
	sensors := All(marks{})
	names := make(map[string]bool)
	for _, s := range sensors {
		assert.False(t, names[s.Name()], "duplicate sensor %s", s.Name())
		names[s.Name()] = true
	}
	assert.Len(t, sensors, 4)
}

func TestClassLoaderDelegation(t *testing.T) {
	cfg := resolve.Resolve(config.Default())
	loader := unittest.LoaderType("com.acme.Loader", nil, nil)
	other := unittest.LoaderType("com.acme.Other", nil, nil)
	s := NewClassLoaderDelegation(marks{loader.ID: true})

	assert.True(t, s.ShouldInstrument(loader, cfg))
	assert.False(t, s.ShouldInstrument(other, cfg))

	raw := config.Default()
	raw.Instrumentation.Special.ClassLoaderDelegation = false
	assert.True(t, s.ShouldInstrument(loader, resolve.Resolve(raw)), "marks outlive the toggle")

	out, err := s.Instrument(loader, cfg, unittest.NewBuilder(loader))
	require.NoError(t, err)
	assert.Equal(t, []unittest.Visit{{Advice: unit.AdviceSupportAccess, Methods: []string{"loadClass"}}},
		out.(*unittest.Builder).Visits)
}

func TestPropagation(t *testing.T) {
	executor := &unit.Unit{ID: "b/Executor", Name: "java.util.concurrent.Executor", Interface: true}
	pool := unittest.Type("com.acme.Pool", nil, "execute", "shutdown")
	pool.Interfaces = []*unit.Unit{executor}
	plain := unittest.Type("com.acme.Plain", nil, "execute")

	thread := unittest.Type("java.lang.Thread", nil, "start", "run")
	worker := unittest.Type("com.acme.Worker", nil, "run")
	worker.Super = thread

	on := resolve.Resolve(config.Default())
	offRaw := config.Default()
	offRaw.Instrumentation.Special.ExecutorContextPropagation = false
	off := resolve.Resolve(offRaw)

	ex := NewExecutorPropagation()
	assert.True(t, ex.ShouldInstrument(pool, on))
	assert.False(t, ex.ShouldInstrument(pool, off))
	assert.False(t, ex.ShouldInstrument(plain, on))
	assert.False(t, ex.ShouldInstrument(executor, on))
	assert.False(t, ex.RequiresInstrumentationChange(pool, on, off))

	out, err := ex.Instrument(pool, on, unittest.NewBuilder(pool))
	require.NoError(t, err)
	assert.Equal(t, []string{"execute"}, out.(*unittest.Builder).Visits[0].Methods)

	ts := NewThreadStartPropagation()
	assert.True(t, ts.ShouldInstrument(thread, on))
	assert.False(t, ts.ShouldInstrument(worker, on), "worker does not declare start")

	sched := NewScheduledExecutorPropagation()
	assert.False(t, sched.ShouldInstrument(pool, on))
}
