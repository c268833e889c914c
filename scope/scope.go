package scope

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// TypeMatcher is the conjunction of a scope's type clauses. Nil clauses
// do not constrain.
type TypeMatcher struct {
	name       NameMatcher
	superclass NameMatcher
	interfaces []NameMatcher
}

// Matches reports whether u satisfies every clause. Interfaces never match
// because they carry no method bodies to hook.
func (m *TypeMatcher) Matches(u *unit.Unit) bool {
	if u == nil || u.Interface {
		return false
	}
	if m.name != nil && !m.name.MatchName(u.Name) {
		return false
	}
	if m.superclass != nil && !anyNamed(u.Ancestors(), m.superclass) {
		return false
	}
	if len(m.interfaces) > 0 {
		all := u.AllInterfaces()
		for _, im := range m.interfaces {
			if !anyNamed(all, im) {
				return false
			}
		}
	}
	return true
}

func anyNamed(units []*unit.Unit, m NameMatcher) bool {
	for _, t := range units {
		if m.MatchName(t.Name) {
			return true
		}
	}
	return false
}

// methodAlternative is one entry of a scope's method list.
type methodAlternative struct {
	name         NameMatcher
	visibility   map[unit.Visibility]bool
	synchronized *bool
	arguments    []string
	anyArguments bool
	constructor  bool
}

func (a *methodAlternative) matches(m unit.Method) bool {
	if m.Constructor != a.constructor {
		return false
	}
	if !a.constructor && a.name != nil && !a.name.MatchName(m.Name) {
		return false
	}
	if a.visibility != nil && !a.visibility[m.Visibility] {
		return false
	}
	if a.synchronized != nil && m.Synchronized != *a.synchronized {
		return false
	}
	if !a.anyArguments {
		if len(m.Arguments) != len(a.arguments) {
			return false
		}
		for i, arg := range a.arguments {
			if m.Arguments[i] != arg {
				return false
			}
		}
	}
	return true
}

// Scope is a compiled, named (type, method) predicate pair.
type Scope struct {
	Type *TypeMatcher

	superclass    NameMatcher
	interfaces    []NameMatcher
	methods       []*methodAlternative
	name          string
	fingerprint   string
	onlyInherited bool
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Fingerprint identifies the scope definition. Scopes compiled from equal
// settings share a fingerprint across configurations.
func (s *Scope) Fingerprint() string { return s.fingerprint }

// MatchesType reports whether the type predicate accepts u.
func (s *Scope) MatchesType(u *unit.Unit) bool {
	return s.Type.Matches(u)
}

// MethodFilter returns the method predicate of the scope for u. Abstract
// methods are never accepted.
func (s *Scope) MethodFilter(u *unit.Unit) unit.MethodFilter {
	var inherited map[string]bool
	if s.onlyInherited {
		inherited = s.inheritedSignatures(u)
	}
	return func(m unit.Method) bool {
		if m.Abstract {
			return false
		}
		if inherited != nil && !inherited[m.Signature()] {
			return false
		}
		if len(s.methods) == 0 {
			return true
		}
		for _, alt := range s.methods {
			if alt.matches(m) {
				return true
			}
		}
		return false
	}
}

// Matches reports whether u satisfies the type predicate and declares at
// least one method accepted by the method predicate.
func (s *Scope) Matches(u *unit.Unit) bool {
	if !s.MatchesType(u) {
		return false
	}
	filter := s.MethodFilter(u)
	for _, m := range u.Methods {
		if filter(m) {
			return true
		}
	}
	return false
}

// inheritedSignatures collects the method signatures declared by the
// supertypes selected through the scope's superclass and interface clauses,
// or by every supertype when the scope names none.
func (s *Scope) inheritedSignatures(u *unit.Unit) map[string]bool {
	out := make(map[string]bool)
	all := s.superclass == nil && len(s.interfaces) == 0
	add := func(t *unit.Unit) {
		for _, m := range t.Methods {
			if !m.Constructor {
				out[m.Signature()] = true
			}
		}
	}
	for _, anc := range u.Ancestors() {
		if all || (s.superclass != nil && s.superclass.MatchName(anc.Name)) {
			add(anc)
		}
	}
	for _, itf := range u.AllInterfaces() {
		if all || anyMatches(s.interfaces, itf.Name) {
			add(itf)
		}
	}
	return out
}

func anyMatches(ms []NameMatcher, name string) bool {
	for _, m := range ms {
		if m.MatchName(name) {
			return true
		}
	}
	return false
}

// Compile builds a single scope.
func Compile(name string, s config.ScopeSettings) *Scope {
	sc := &Scope{
		name:          name,
		Type:          &TypeMatcher{},
		onlyInherited: s.Advanced.InstrumentOnlyInheritedMethods,
		fingerprint:   fingerprint(s),
	}
	if s.Type != nil {
		sc.Type.name = NewNameMatcher(*s.Type)
	}
	if s.Superclass != nil {
		sc.superclass = NewNameMatcher(*s.Superclass)
		sc.Type.superclass = sc.superclass
	}
	for _, itf := range s.Interfaces {
		sc.interfaces = append(sc.interfaces, NewNameMatcher(itf))
	}
	sc.Type.interfaces = sc.interfaces

	for _, ms := range s.Methods {
		alt := &methodAlternative{
			constructor:  ms.IsConstructor,
			synchronized: ms.IsSynchronized,
			anyArguments: ms.Arguments == nil,
			arguments:    ms.Arguments,
		}
		if ms.Name != "" {
			alt.name = NewNameMatcher(ms.NameMatcherSettings)
		}
		if len(ms.Visibility) > 0 {
			alt.visibility = make(map[unit.Visibility]bool, len(ms.Visibility))
			for _, v := range ms.Visibility {
				if vis, ok := unit.ParseVisibility(v); ok {
					alt.visibility[vis] = true
				}
			}
		}
		sc.methods = append(sc.methods, alt)
	}
	return sc
}

// CompileAll builds every scope of the settings map.
func CompileAll(settings map[string]config.ScopeSettings) map[string]*Scope {
	out := make(map[string]*Scope, len(settings))
	for name, s := range settings {
		out[name] = Compile(name, s)
	}
	return out
}

func fingerprint(s config.ScopeSettings) string {
	var b strings.Builder
	writeName := func(label string, m *config.NameMatcherSettings) {
		if m == nil {
			fmt.Fprintf(&b, "%s:-\n", label)
			return
		}
		fmt.Fprintf(&b, "%s:%s:%q\n", label, m.MatcherMode, m.Name)
	}
	writeName("type", s.Type)
	writeName("super", s.Superclass)
	for i := range s.Interfaces {
		writeName("itf", &s.Interfaces[i])
	}
	for _, m := range s.Methods {
		writeName("method", &m.NameMatcherSettings)
		vis := append([]string(nil), m.Visibility...)
		sort.Strings(vis)
		fmt.Fprintf(&b, " vis=%v ctor=%t", vis, m.IsConstructor)
		if m.IsSynchronized != nil {
			fmt.Fprintf(&b, " sync=%t", *m.IsSynchronized)
		}
		if m.Arguments == nil {
			b.WriteString(" args=*")
		} else {
			fmt.Fprintf(&b, " args=%q", m.Arguments)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "inherited=%t\n", s.Advanced.InstrumentOnlyInheritedMethods)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
