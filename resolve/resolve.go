package resolve

import (
	"time"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
	"github.com/inspectIT/inspectit-ocelot-sub003/scope"
)

// Configuration is a resolved, immutable settings snapshot. Callers must not
// modify any of its fields.
type Configuration struct {
	// Raw is the settings tree this configuration was resolved from.
	Raw *config.Raw

	Scopes map[string]*scope.Scope
	Rules  []*scope.Rule

	IgnoredBootstrap scope.PrefixMatcher
	Ignored          scope.PrefixMatcher
	Support          scope.PrefixMatcher

	Special  config.SpecialSettings
	Internal config.InternalSettings

	ExcludeLambdas bool
	SelfMonitoring bool
}

// Resolve compiles raw into a Configuration. Invalid settings are a
// programming error: callers validate before resolving, so Resolve panics.
func Resolve(raw *config.Raw) *Configuration {
	if err := config.Validate(raw); err != nil {
		panic(errors.Wrap(errors.PhaseResolve, errors.KindInvalidConfig, err, "resolve settings"))
	}

	inst := raw.Instrumentation
	scopes := scope.CompileAll(inst.Scopes)
	return &Configuration{
		Raw:              raw,
		Scopes:           scopes,
		Rules:            scope.CompileRules(inst.Rules, scopes, Logger()),
		IgnoredBootstrap: scope.NewPrefixMatcher(config.EnabledPrefixes(inst.IgnoredBootstrapPackages)...),
		Ignored:          scope.NewPrefixMatcher(config.EnabledPrefixes(inst.IgnoredPackages)...),
		Support:          scope.NewPrefixMatcher(inst.Internal.SupportPrefixes...),
		Special:          inst.Special,
		Internal:         inst.Internal,
		ExcludeLambdas:   inst.ExcludeLambdas,
		SelfMonitoring:   raw.SelfMonitoring.Enabled,
	}
}

// InterBatchDelay returns the reconciliation period.
func (c *Configuration) InterBatchDelay() time.Duration {
	return c.Internal.InterBatchDelay
}
