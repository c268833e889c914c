// Package scope compiles scope and rule settings into the predicates used to
// decide which units and methods are hooked.
//
// A Scope pairs a type predicate with a method predicate. The type predicate
// is the conjunction of its clauses (name, superclass, interfaces); the method
// predicate is the disjunction of its method alternatives. Clauses that are
// not configured do not constrain, so an empty scope matches everything.
//
// A Rule bundles scopes by name. Compilation is never incremental: every
// settings change rebuilds the complete scope and rule set.
package scope
