package unit

// MethodFilter selects the methods a modification applies to.
type MethodFilter func(Method) bool

// Builder accumulates modifications of one unit's representation. Builders
// are values: Visit returns a new builder and leaves the receiver unchanged,
// so an earlier builder can always be returned to discard later visits.
type Builder interface {
	// Visit requests that advice is woven into every method accepted by
	// filter. Each method receives a given advice at most once.
	Visit(advice string, filter MethodFilter) Builder
}

// Finisher is implemented by builders whose representation can fail to
// build. The transformer calls Finish before reporting a unit as applied and
// hands the returned builder to the host; on error the modifications are
// discarded and the original representation is kept.
type Finisher interface {
	Finish() (Builder, error)
}

// Transformer is called by the host whenever it is about to replace a unit's
// representation. redefinition is false when the unit is being defined for
// the first time. The returned builder is applied; returning b unchanged
// leaves the original representation in place.
type Transformer interface {
	Transform(u *Unit, b Builder, redefinition bool) Builder
}

// Host owns the loaded units and their representations.
type Host interface {
	// SetTransformer installs the callback used by Retransform and by first
	// definitions.
	SetTransformer(t Transformer)

	// LoadedUnits returns a snapshot of every currently loaded unit.
	LoadedUnits() []*Unit

	// Retransform replaces the representation of units, in order, invoking
	// the transformer for each one before returning. A non-nil error means
	// the batch did not complete.
	Retransform(units ...*Unit) error
}

// Advice names understood by hosts.
const (
	// AdviceHook attaches the method interception wrapper.
	AdviceHook = "hook"
	// AdviceSupportAccess grants the engine's support code visibility through a class loader.
	AdviceSupportAccess = "support-access"
	// AdviceContextPropagation wraps task submission to carry correlation context.
	AdviceContextPropagation = "context-propagation"
)

// AnyMethod accepts every method.
func AnyMethod(Method) bool { return true }
