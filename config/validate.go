package config

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
)

// settingsValidate is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var settingsValidate *validator.Validate

func init() {
	settingsValidate = validator.New()
	_ = settingsValidate.RegisterValidation("matchermode", validateMatcherMode)
}

func validateMatcherMode(fl validator.FieldLevel) bool {
	return MatcherMode(fl.Field().String()).Valid()
}

// Validate checks raw against the settings constraints.
func Validate(raw *Raw) error {
	if raw == nil {
		return errors.InvalidInput(errors.PhaseConfig, "settings are nil")
	}

	if err := settingsValidate.Struct(raw); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
				Path(strings.Split(fe.Namespace(), ".")...).
				Detail("failed %q constraint (value %v)", fe.Tag(), fe.Value()).
				Cause(err).
				Build()
		}
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "validate settings")
	}

	if err := checkPrefixes(&raw.Instrumentation); err != nil {
		return err
	}

	if err := checkPatterns(raw.Instrumentation.Scopes); err != nil {
		return err
	}

	if raw.Instrumentation.StrictScopeReferences {
		if err := checkScopeReferences(&raw.Instrumentation); err != nil {
			return err
		}
	}
	return nil
}

// checkPrefixes rejects empty package prefixes, which would exclude every
// unit from instrumentation.
func checkPrefixes(s *InstrumentationSettings) error {
	for _, p := range s.Internal.SupportPrefixes {
		if p == "" {
			return errors.InvalidConfig("instrumentation.internal.support-prefixes", "empty prefix")
		}
	}
	for p, on := range s.IgnoredPackages {
		if on && p == "" {
			return errors.InvalidConfig("instrumentation.ignored-packages", "empty prefix")
		}
	}
	for p, on := range s.IgnoredBootstrapPackages {
		if on && p == "" {
			return errors.InvalidConfig("instrumentation.ignored-bootstrap-packages", "empty prefix")
		}
	}
	return nil
}

func checkScopeReferences(s *InstrumentationSettings) error {
	rules := make([]string, 0, len(s.Rules))
	for name := range s.Rules {
		rules = append(rules, name)
	}
	sort.Strings(rules)

	for _, name := range rules {
		refs := make([]string, 0, len(s.Rules[name].Scopes))
		for scope, on := range s.Rules[name].Scopes {
			if on {
				refs = append(refs, scope)
			}
		}
		sort.Strings(refs)
		for _, scope := range refs {
			if _, ok := s.Scopes[scope]; !ok {
				return errors.UnknownScope(name, scope)
			}
		}
	}
	return nil
}

// checkPatterns rejects MATCHES patterns that are not valid regular
// expressions, so that scope compilation cannot fail later.
func checkPatterns(scopes map[string]ScopeSettings) error {
	check := func(scope, clause string, m *NameMatcherSettings) error {
		if m == nil || m.MatcherMode != Matches {
			return nil
		}
		if _, err := regexp.Compile(m.Name); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
				Path("instrumentation", "scopes", scope, clause).
				Detail("invalid pattern %q", m.Name).
				Cause(err).
				Build()
		}
		return nil
	}

	for name, s := range scopes {
		if err := check(name, "type", s.Type); err != nil {
			return err
		}
		if err := check(name, "superclass", s.Superclass); err != nil {
			return err
		}
		for i := range s.Interfaces {
			if err := check(name, "interfaces", &s.Interfaces[i]); err != nil {
				return err
			}
		}
		for i := range s.Methods {
			if err := check(name, "methods", &s.Methods[i].NameMatcherSettings); err != nil {
				return err
			}
		}
	}
	return nil
}
