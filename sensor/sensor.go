package sensor

import (
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Sensor independently decides whether and how to modify a unit.
type Sensor interface {
	// Name identifies the sensor. Names are unique within a sensor list.
	Name() string

	// ShouldInstrument reports whether the sensor wants to modify u under cfg.
	ShouldInstrument(u *unit.Unit, cfg *resolve.Configuration) bool

	// RequiresInstrumentationChange reports whether a unit instrumented by
	// this sensor under from needs to be modified again under to.
	RequiresInstrumentationChange(u *unit.Unit, from, to *resolve.Configuration) bool

	// Instrument adds the sensor's modifications to b.
	Instrument(u *unit.Unit, cfg *resolve.Configuration, b unit.Builder) (unit.Builder, error)
}

// SupportTracker reports which class-loader types received support access.
type SupportTracker interface {
	Supported(u *unit.Unit) bool
}

// All returns the built-in sensors in their fixed order.
func All(support SupportTracker) []Sensor {
	return []Sensor{
		NewClassLoaderDelegation(support),
		NewExecutorPropagation(),
		NewScheduledExecutorPropagation(),
		NewThreadStartPropagation(),
	}
}
