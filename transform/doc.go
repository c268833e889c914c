// Package transform implements the callback the host invokes whenever it is
// about to replace a unit's representation, and the shutdown sweep that
// removes every applied modification.
//
// First definitions are only reported to discovery observers; the unit is
// instrumented later by the reconciler. Redefinitions apply the desired state
// computed at that moment and always report the outcome to applied
// observers, including no-ops and failures.
//
// Once Shutdown has flipped the shutdown flag, every redefinition targets
// the empty state. The flag is written under the same lock every Transform
// call holds, so no unit is freshly instrumented after the flip.
package transform
