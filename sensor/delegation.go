package sensor

import (
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// ClassLoaderDelegation makes the engine's support code visible through
// class loaders. It instruments exactly the loader types the support tracker
// has marked; marks are permanent, so the sensor keeps instrumenting a type
// even after delegation is switched off.
type ClassLoaderDelegation struct {
	support SupportTracker
}

// NewClassLoaderDelegation creates the sensor.
func NewClassLoaderDelegation(support SupportTracker) *ClassLoaderDelegation {
	return &ClassLoaderDelegation{support: support}
}

// Name implements Sensor.
func (*ClassLoaderDelegation) Name() string { return "class-loader-delegation" }

// ShouldInstrument implements Sensor.
func (s *ClassLoaderDelegation) ShouldInstrument(u *unit.Unit, _ *resolve.Configuration) bool {
	return u.ClassLoader && s.support != nil && s.support.Supported(u)
}

// RequiresInstrumentationChange implements Sensor. Support access does not
// depend on settings.
func (*ClassLoaderDelegation) RequiresInstrumentationChange(*unit.Unit, *resolve.Configuration, *resolve.Configuration) bool {
	return false
}

// Instrument implements Sensor.
func (*ClassLoaderDelegation) Instrument(_ *unit.Unit, _ *resolve.Configuration, b unit.Builder) (unit.Builder, error) {
	return b.Visit(unit.AdviceSupportAccess, func(m unit.Method) bool {
		return m.Name == "loadClass" && !m.Abstract
	}), nil
}
