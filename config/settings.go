package config

import (
	"strings"
	"time"
)

// Raw is the complete declarative settings tree.
type Raw struct {
	Instrumentation InstrumentationSettings `yaml:"instrumentation"`
	SelfMonitoring  SelfMonitoringSettings  `yaml:"self-monitoring"`
}

// InstrumentationSettings configures what gets instrumented and how fast.
type InstrumentationSettings struct {
	Scopes                   map[string]ScopeSettings `yaml:"scopes" validate:"dive"`
	Rules                    map[string]RuleSettings  `yaml:"rules" validate:"dive"`
	IgnoredBootstrapPackages map[string]bool          `yaml:"ignored-bootstrap-packages"`
	IgnoredPackages          map[string]bool          `yaml:"ignored-packages"`
	Internal                 InternalSettings         `yaml:"internal"`
	Special                  SpecialSettings          `yaml:"special"`
	ExcludeLambdas           bool                     `yaml:"exclude-lambdas"`

	// StrictScopeReferences rejects rules that reference unknown scopes
	// instead of dropping the reference.
	StrictScopeReferences bool `yaml:"strict-scope-references"`
}

// InternalSettings tunes the reconciliation loop.
type InternalSettings struct {
	SupportPrefixes          []string      `yaml:"support-prefixes"`
	InterBatchDelay          time.Duration `yaml:"inter-batch-delay" validate:"gt=0"`
	MaxUnitsPerBatch         int           `yaml:"max-units-per-batch" validate:"min=1"`
	MaxUnitsToModifyPerBatch int           `yaml:"max-units-to-modify-per-batch" validate:"min=1"`
	ShutdownBatchSize        int           `yaml:"shutdown-batch-size" validate:"min=1"`
}

// SpecialSettings toggles the built-in sensors.
type SpecialSettings struct {
	ClassLoaderDelegation               bool `yaml:"class-loader-delegation"`
	ExecutorContextPropagation          bool `yaml:"executor-context-propagation"`
	ThreadStartContextPropagation       bool `yaml:"thread-start-context-propagation"`
	ScheduledExecutorContextPropagation bool `yaml:"scheduled-executor-context-propagation"`
}

// SelfMonitoringSettings controls the engine's own measurements.
type SelfMonitoringSettings struct {
	Enabled bool `yaml:"enabled"`
}

// MatcherMode selects how a name pattern is compared.
type MatcherMode string

const (
	EqualsFully           MatcherMode = "EQUALS_FULLY"
	EqualsFullyIgnoreCase MatcherMode = "EQUALS_FULLY_IGNORE_CASE"
	StartsWith            MatcherMode = "STARTS_WITH"
	StartsWithIgnoreCase  MatcherMode = "STARTS_WITH_IGNORE_CASE"
	EndsWith              MatcherMode = "ENDS_WITH"
	EndsWithIgnoreCase    MatcherMode = "ENDS_WITH_IGNORE_CASE"
	Contains              MatcherMode = "CONTAINS"
	ContainsIgnoreCase    MatcherMode = "CONTAINS_IGNORE_CASE"
	Matches               MatcherMode = "MATCHES"
)

// Valid reports whether m is a known mode. The empty mode means EQUALS_FULLY.
func (m MatcherMode) Valid() bool {
	switch m {
	case "", EqualsFully, EqualsFullyIgnoreCase, StartsWith, StartsWithIgnoreCase,
		EndsWith, EndsWithIgnoreCase, Contains, ContainsIgnoreCase, Matches:
		return true
	}
	return false
}

// NameMatcherSettings describes a name pattern.
type NameMatcherSettings struct {
	Name        string      `yaml:"name"`
	MatcherMode MatcherMode `yaml:"matcher-mode,omitempty" validate:"matchermode"`
}

// MethodMatcherSettings describes one alternative of a scope's method predicate.
type MethodMatcherSettings struct {
	NameMatcherSettings `yaml:",inline"`

	Visibility []string `yaml:"visibility,omitempty" validate:"dive,oneof=PUBLIC PROTECTED PACKAGE PRIVATE"`

	// Arguments lists the exact argument types. Nil matches any arguments,
	// an empty list matches methods without arguments.
	Arguments []string `yaml:"arguments"`

	IsConstructor  bool  `yaml:"is-constructor,omitempty"`
	IsSynchronized *bool `yaml:"is-synchronized,omitempty"`
}

// AdvancedScopeSettings holds rarely used scope options.
type AdvancedScopeSettings struct {
	InstrumentOnlyInheritedMethods bool `yaml:"instrument-only-inherited-methods"`
}

// ScopeSettings describes a named (type, method) predicate pair. Omitted
// clauses do not constrain; an empty scope matches everything.
type ScopeSettings struct {
	Type       *NameMatcherSettings    `yaml:"type,omitempty"`
	Superclass *NameMatcherSettings    `yaml:"superclass,omitempty"`
	Interfaces []NameMatcherSettings   `yaml:"interfaces,omitempty" validate:"dive"`
	Methods    []MethodMatcherSettings `yaml:"methods,omitempty" validate:"dive"`
	Advanced   AdvancedScopeSettings   `yaml:"advanced,omitempty"`
}

// RuleSettings bundles scopes with the actions their hooks execute.
type RuleSettings struct {
	Enabled *bool           `yaml:"enabled,omitempty"`
	Scopes  map[string]bool `yaml:"scopes"`
	Include map[string]bool `yaml:"include,omitempty"`
	Actions []string        `yaml:"actions,omitempty"`
}

// IsEnabled reports whether the rule is active. Rules are enabled unless
// explicitly disabled.
func (r RuleSettings) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Default returns the built-in settings every file is decoded over.
func Default() *Raw {
	return &Raw{
		Instrumentation: InstrumentationSettings{
			Scopes: map[string]ScopeSettings{},
			Rules:  map[string]RuleSettings{},
			IgnoredBootstrapPackages: map[string]bool{
				"java.lang.invoke.": true,
				"java.lang.reflect.": true,
				"jdk.internal.":     true,
				"sun.":              true,
				"com.sun.":          true,
			},
			IgnoredPackages: map[string]bool{},
			Internal: InternalSettings{
				SupportPrefixes:          []string{"rocks.inspectit.ocelot."},
				InterBatchDelay:          50 * time.Millisecond,
				MaxUnitsPerBatch:         1000,
				MaxUnitsToModifyPerBatch: 100,
				ShutdownBatchSize:        100,
			},
			Special: SpecialSettings{
				ClassLoaderDelegation:               true,
				ExecutorContextPropagation:          true,
				ThreadStartContextPropagation:       true,
				ScheduledExecutorContextPropagation: true,
			},
			ExcludeLambdas: true,
		},
	}
}

// EnabledPrefixes returns the keys of a prefix toggle map whose value is true.
func EnabledPrefixes(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for p, on := range m {
		if on && strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
