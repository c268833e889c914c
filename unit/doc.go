// Package unit defines the code units the engine reconciles and the contracts
// of the host that owns them.
//
// A Unit is a single loadable type. The host describes it (name, supertypes,
// methods, defining loader) and owns its executable representation. The
// engine never rewrites a representation itself; it hands a Transformer to
// the host, and the host calls it whenever it is about to replace a unit's
// representation:
//
//	host.SetTransformer(hook)
//	err := host.Retransform(units...) // synchronously calls hook.Transform per unit
//
// A Builder accumulates the modifications the transformer requests. Builders
// always start from the unit's original representation, so returning the
// builder untouched restores the uninstrumented form.
package unit
