package scope

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Rule is a compiled, enabled rule.
type Rule struct {
	name    string
	scopes  []*Scope
	actions []string
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Scopes returns the resolved scopes, sorted by name.
func (r *Rule) Scopes() []*Scope { return r.scopes }

// Actions returns the rule's own actions followed by those of included rules.
func (r *Rule) Actions() []string { return r.actions }

// Matches reports whether any of the rule's scopes matches u.
func (r *Rule) Matches(u *unit.Unit) bool {
	for _, s := range r.scopes {
		if s.Matches(u) {
			return true
		}
	}
	return false
}

// MatchedScopes returns the scopes of the rule whose type predicate accepts u.
func (r *Rule) MatchedScopes(u *unit.Unit) []*Scope {
	var out []*Scope
	for _, s := range r.scopes {
		if s.MatchesType(u) {
			out = append(out, s)
		}
	}
	return out
}

// MethodFilter returns the OR of the method predicates of every scope whose
// type predicate accepts u.
func (r *Rule) MethodFilter(u *unit.Unit) unit.MethodFilter {
	return UnionFilter(u, []*Rule{r})
}

// UnionFilter returns the OR of the method predicates of all rules for u.
// A method accepted by several rules is accepted once.
func UnionFilter(u *unit.Unit, rules []*Rule) unit.MethodFilter {
	var filters []unit.MethodFilter
	for _, r := range rules {
		for _, s := range r.MatchedScopes(u) {
			filters = append(filters, s.MethodFilter(u))
		}
	}
	return func(m unit.Method) bool {
		for _, f := range filters {
			if f(m) {
				return true
			}
		}
		return false
	}
}

// CompileRules builds the enabled rules, sorted by name. Scope references
// that do not resolve are dropped and logged; strict settings reject them
// during validation instead.
func CompileRules(settings map[string]config.RuleSettings, scopes map[string]*Scope, log *zap.Logger) []*Rule {
	if log == nil {
		log = Logger()
	}

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*Rule
	for _, name := range names {
		rs := settings[name]
		if !rs.IsEnabled() {
			continue
		}
		r := &Rule{name: name, actions: collectActions(name, settings)}
		for _, ref := range sortedEnabled(rs.Scopes) {
			s, ok := scopes[ref]
			if !ok {
				log.Warn("rule references unknown scope, dropping reference",
					zap.String("rule", name),
					zap.String("scope", ref))
				continue
			}
			r.scopes = append(r.scopes, s)
		}
		out = append(out, r)
	}
	return out
}

// collectActions gathers the actions of rule name and, transitively, of the
// rules it includes. Each action appears once; include cycles are ignored.
func collectActions(name string, settings map[string]config.RuleSettings) []string {
	var out []string
	seenAction := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(string)
	visit = func(n string) {
		if visited[n] {
			return
		}
		visited[n] = true
		rs, ok := settings[n]
		if !ok {
			return
		}
		for _, a := range rs.Actions {
			if !seenAction[a] {
				seenAction[a] = true
				out = append(out, a)
			}
		}
		for _, inc := range sortedEnabled(rs.Include) {
			visit(inc)
		}
	}
	visit(name)
	return out
}

func sortedEnabled(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, on := range m {
		if on {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Fingerprints returns the sorted fingerprints of every scope of rules whose
// type predicate accepts u. Equal results mean the hooked method set of u
// cannot differ.
func Fingerprints(u *unit.Unit, rules []*Rule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rules {
		for _, s := range r.MatchedScopes(u) {
			if !seen[s.fingerprint] {
				seen[s.fingerprint] = true
				out = append(out, s.fingerprint)
			}
		}
	}
	sort.Strings(out)
	return out
}
