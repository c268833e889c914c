// Package selfmon records measurements about the engine itself.
package selfmon

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Measurement names recorded by the reconciler.
const (
	QueueSize     = "instrumentation.queue-size"
	BatchDuration = "instrumentation.batch-duration"
	BatchChecked  = "instrumentation.batch-checked"
	BatchModified = "instrumentation.batch-modified"
)

// Monitor is the self-monitoring sink. Implementations must be safe for
// concurrent use and must not block.
type Monitor interface {
	// Record sets the latest value of a measurement.
	Record(name string, value float64)

	// Time starts timing name; the returned function stops and records it.
	Time(name string) func()

	// SetEnabled switches recording on or off.
	SetEnabled(enabled bool)
}

// Noop discards everything.
type Noop struct{}

func (Noop) Record(string, float64) {}
func (Noop) Time(string) func()     { return func() {} }
func (Noop) SetEnabled(bool)        {}

const namespace = "ocelot"

// Prometheus exports measurements as gauges and durations as histograms,
// labelled by measurement name.
type Prometheus struct {
	values    *prometheus.GaugeVec
	durations *prometheus.HistogramVec
	enabled   atomic.Bool
}

// NewPrometheus creates a monitor registered with reg. It starts enabled.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "self_measurement",
			Help:      "Latest value of an instrumentation engine measurement",
		}, []string{"measure"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "self_duration_seconds",
			Help:      "Duration of instrumentation engine operations",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"measure"}),
	}
	reg.MustRegister(p.values, p.durations)
	p.enabled.Store(true)
	return p
}

// Record implements Monitor.
func (p *Prometheus) Record(name string, value float64) {
	if !p.enabled.Load() {
		return
	}
	p.values.WithLabelValues(label(name)).Set(value)
}

// Time implements Monitor.
func (p *Prometheus) Time(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.durations.WithLabelValues(label(name)).Observe(time.Since(start).Seconds())
	}
}

// SetEnabled implements Monitor.
func (p *Prometheus) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Value returns the gauge of a measurement, for tests and debugging.
func (p *Prometheus) Value(name string) prometheus.Gauge {
	return p.values.WithLabelValues(label(name))
}

func label(name string) string {
	return strings.TrimPrefix(name, "instrumentation.")
}
