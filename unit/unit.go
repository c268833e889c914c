package unit

import "strings"

// ID identifies a loaded unit. Two units loaded by different loaders under the
// same name have different IDs.
type ID string

// Visibility of a method.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	PackagePrivate
	Private
)

// String returns the settings name of the visibility.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "PUBLIC"
	case Protected:
		return "PROTECTED"
	case PackagePrivate:
		return "PACKAGE"
	case Private:
		return "PRIVATE"
	default:
		return "UNKNOWN"
	}
}

// ParseVisibility parses a settings visibility name.
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.ToUpper(s) {
	case "PUBLIC":
		return Public, true
	case "PROTECTED":
		return Protected, true
	case "PACKAGE":
		return PackagePrivate, true
	case "PRIVATE":
		return Private, true
	}
	return 0, false
}

// Method describes one method declared by a unit.
type Method struct {
	Name         string
	Arguments    []string
	Visibility   Visibility
	Constructor  bool
	Abstract     bool
	Synchronized bool
}

// Signature returns name and argument types, used to detect overrides.
func (m Method) Signature() string {
	return m.Name + "(" + strings.Join(m.Arguments, ",") + ")"
}

// Unit describes a loaded type. Units are owned by the host; the engine only
// reads them.
type Unit struct {
	ID         ID
	Name       string
	Super      *Unit
	Interfaces []*Unit
	Methods    []Method

	// Loader is the type of the loader that defined this unit. Nil means the
	// unit has no defining loader (bootstrap).
	Loader *Unit

	Abstract  bool
	Interface bool

	// ClassLoader marks types whose instances define other units.
	ClassLoader bool

	// Modifiable is false when the host can never replace the representation.
	Modifiable bool
}

// String returns the unit name.
func (u *Unit) String() string {
	if u == nil {
		return "<nil>"
	}
	return u.Name
}

// Ancestors returns the superclass chain, nearest first.
func (u *Unit) Ancestors() []*Unit {
	var out []*Unit
	for s := u.Super; s != nil; s = s.Super {
		out = append(out, s)
	}
	return out
}

// AllInterfaces returns every interface implemented by u or its ancestors,
// including super-interfaces, without duplicates.
func (u *Unit) AllInterfaces() []*Unit {
	seen := make(map[ID]bool)
	var out []*Unit
	var visit func(*Unit)
	visit = func(t *Unit) {
		for _, itf := range t.Interfaces {
			if itf == nil || seen[itf.ID] {
				continue
			}
			seen[itf.ID] = true
			out = append(out, itf)
			visit(itf)
		}
	}
	for t := u; t != nil; t = t.Super {
		visit(t)
	}
	return out
}

// IsSubtypeOf reports whether u is, extends or implements a type named name.
func (u *Unit) IsSubtypeOf(name string) bool {
	for t := u; t != nil; t = t.Super {
		if t.Name == name {
			return true
		}
	}
	for _, itf := range u.AllInterfaces() {
		if itf.Name == name {
			return true
		}
	}
	return false
}

// Lambda reports whether u is a synthetic lambda type.
func (u *Unit) Lambda() bool {
	return strings.Contains(u.Name, "$$Lambda")
}
