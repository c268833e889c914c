package selfmon

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.Record(QueueSize, 42)
	assert.Equal(t, 42.0, testutil.ToFloat64(p.Value(QueueSize)))

	p.SetEnabled(false)
	p.Record(QueueSize, 7)
	assert.Equal(t, 42.0, testutil.ToFloat64(p.Value(QueueSize)))

	p.SetEnabled(true)
	p.Record(QueueSize, 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(p.Value(QueueSize)))
}

func TestPrometheus_Time(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.Time(BatchDuration)()

	n, err := testutil.GatherAndCount(reg, "ocelot_self_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNoop(t *testing.T) {
	var m Monitor = Noop{}
	m.SetEnabled(true)
	m.Record(QueueSize, 1)
	m.Time(BatchDuration)()
}
