package sensor

import (
	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Propagation wraps task submission methods of a well-known supertype so
// that correlation context follows the task to the thread executing it.
type Propagation struct {
	enabled   func(config.SpecialSettings) bool
	methods   map[string]bool
	name      string
	supertype string
}

// NewExecutorPropagation instruments Executor.execute implementations.
func NewExecutorPropagation() *Propagation {
	return &Propagation{
		name:      "executor-context-propagation",
		supertype: "java.util.concurrent.Executor",
		methods:   map[string]bool{"execute": true},
		enabled: func(s config.SpecialSettings) bool {
			return s.ExecutorContextPropagation
		},
	}
}

// NewScheduledExecutorPropagation instruments the scheduling methods of
// ScheduledExecutorService implementations.
func NewScheduledExecutorPropagation() *Propagation {
	return &Propagation{
		name:      "scheduled-executor-context-propagation",
		supertype: "java.util.concurrent.ScheduledExecutorService",
		methods: map[string]bool{
			"schedule":               true,
			"scheduleAtFixedRate":    true,
			"scheduleWithFixedDelay": true,
		},
		enabled: func(s config.SpecialSettings) bool {
			return s.ScheduledExecutorContextPropagation
		},
	}
}

// NewThreadStartPropagation instruments Thread.start.
func NewThreadStartPropagation() *Propagation {
	return &Propagation{
		name:      "thread-start-context-propagation",
		supertype: "java.lang.Thread",
		methods:   map[string]bool{"start": true},
		enabled: func(s config.SpecialSettings) bool {
			return s.ThreadStartContextPropagation
		},
	}
}

// Name implements Sensor.
func (p *Propagation) Name() string { return p.name }

// ShouldInstrument implements Sensor.
func (p *Propagation) ShouldInstrument(u *unit.Unit, cfg *resolve.Configuration) bool {
	if cfg == nil || !p.enabled(cfg.Special) || u.Interface {
		return false
	}
	if !u.IsSubtypeOf(p.supertype) {
		return false
	}
	for _, m := range u.Methods {
		if p.accepts(m) {
			return true
		}
	}
	return false
}

// RequiresInstrumentationChange implements Sensor. The woven advice does not
// depend on settings beyond the toggle, which ShouldInstrument covers.
func (*Propagation) RequiresInstrumentationChange(*unit.Unit, *resolve.Configuration, *resolve.Configuration) bool {
	return false
}

// Instrument implements Sensor.
func (p *Propagation) Instrument(_ *unit.Unit, _ *resolve.Configuration, b unit.Builder) (unit.Builder, error) {
	return b.Visit(unit.AdviceContextPropagation, p.accepts), nil
}

func (p *Propagation) accepts(m unit.Method) bool {
	return p.methods[m.Name] && !m.Abstract && !m.Constructor
}
