// Package errors provides structured error types for the instrumentation engine.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the affected code unit, a human readable detail and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseApply, errors.KindApplyFailed).
//		Unit("com.acme.Service").
//		Detail("host rejected %d units", 3).
//		Cause(hostErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ApplyFailed("com.acme.Service", hostErr)
//	err := errors.InvalidConfig("instrumentation.rules.r1", "unknown scope \"s9\"")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
