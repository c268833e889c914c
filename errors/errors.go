package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // settings loading and validation
	PhaseResolve   Phase = "resolve"   // scope/rule compilation
	PhaseCheck     Phase = "check"     // desired state computation
	PhaseApply     Phase = "apply"     // host retransformation
	PhaseTransform Phase = "transform" // apply hook and sensors
	PhaseShutdown  Phase = "shutdown"  // rollback sweep
	PhaseHost      Phase = "host"      // host adapter operations
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidConfig  Kind = "invalid_config"
	KindUnknownScope   Kind = "unknown_scope"
	KindApplyFailed    Kind = "apply_failed"
	KindSensorFailed   Kind = "sensor_failed"
	KindNotModifiable  Kind = "not_modifiable"
	KindUnknownUnit    Kind = "unknown_unit"
	KindShuttingDown   Kind = "shutting_down"
	KindCompileFailed  Kind = "compile_failed"
	KindInvalidInput   Kind = "invalid_input"
	KindNotInitialized Kind = "not_initialized"
)

// Error is the structured error type used throughout the engine
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Unit   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Unit != "" {
		b.WriteString(" for unit ")
		b.WriteString(e.Unit)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the settings path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Unit sets the affected code unit name
func (b *Builder) Unit(name string) *Builder {
	b.err.Unit = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidConfig creates a configuration validation error
func InvalidConfig(path string, detail string) *Error {
	var p []string
	if path != "" {
		p = strings.Split(path, ".")
	}
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Path:   p,
		Detail: detail,
	}
}

// UnknownScope creates an error for a rule referencing a scope that does not exist
func UnknownScope(rule, scope string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownScope,
		Path:   []string{"instrumentation", "rules", rule},
		Detail: fmt.Sprintf("scope %q not found", scope),
	}
}

// ApplyFailed creates an error for a unit the host failed to retransform
func ApplyFailed(unit string, cause error) *Error {
	return &Error{
		Phase:  PhaseApply,
		Kind:   KindApplyFailed,
		Unit:   unit,
		Detail: "retransform",
		Cause:  cause,
	}
}

// SensorFailed creates an error for a sensor that could not build its modification
func SensorFailed(unit, sensor string, cause error) *Error {
	return &Error{
		Phase:  PhaseTransform,
		Kind:   KindSensorFailed,
		Unit:   unit,
		Detail: fmt.Sprintf("sensor %s", sensor),
		Cause:  cause,
	}
}

// NotModifiable creates an error for a unit the host cannot rewrite
func NotModifiable(phase Phase, unit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotModifiable,
		Unit:   unit,
		Detail: "unit cannot be modified",
	}
}

// UnknownUnit creates an error for a unit the host does not know
func UnknownUnit(phase Phase, unit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownUnit,
		Unit:   unit,
		Detail: "unit not loaded",
	}
}

// CompileFailed creates an error for a representation the host could not compile
func CompileFailed(unit string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindCompileFailed,
		Unit:   unit,
		Detail: "compile representation",
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a missing collaborator
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// UnitFailure is a single unit that could not reach its requested state
type UnitFailure struct {
	Err  error
	Unit string
}

// BatchError is returned when one or more units of a batched apply failed
type BatchError struct {
	Failures []UnitFailure
}

// Add records a failed unit
func (e *BatchError) Add(unit string, err error) {
	e.Failures = append(e.Failures, UnitFailure{Unit: unit, Err: err})
}

// ErrorOrNil returns nil when no failure was recorded
func (e *BatchError) ErrorOrNil() error {
	if e == nil || len(e.Failures) == 0 {
		return nil
	}
	return e
}

// Units returns the names of the failed units in the order they failed
func (e *BatchError) Units() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Unit)
	}
	return names
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 0 {
		return "[apply] apply_failed: no units specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("failed to apply %d unit(s):", len(e.Failures)))
	for _, f := range e.Failures {
		b.WriteString("\n  - ")
		b.WriteString(f.Unit)
		if f.Err != nil {
			b.WriteString(": ")
			b.WriteString(f.Err.Error())
		}
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *BatchError) Is(target error) bool {
	_, ok := target.(*BatchError)
	return ok
}

// Unwrap exposes the individual unit failures to errors.Is/As
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
