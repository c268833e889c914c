package unittest

import "github.com/inspectIT/inspectit-ocelot-sub003/unit"

// Type returns a modifiable unit named name defined by loader, with one
// public method per entry of methods.
func Type(name string, loader *unit.Unit, methods ...string) *unit.Unit {
	u := &unit.Unit{
		ID:         unit.ID(loaderName(loader) + "/" + name),
		Name:       name,
		Loader:     loader,
		Modifiable: true,
	}
	for _, m := range methods {
		u.Methods = append(u.Methods, unit.Method{Name: m, Visibility: unit.Public})
	}
	return u
}

// LoaderType returns a class-loader unit extending super.
func LoaderType(name string, super *unit.Unit, loader *unit.Unit) *unit.Unit {
	u := Type(name, loader, "loadClass")
	u.Super = super
	u.ClassLoader = true
	return u
}

func loaderName(loader *unit.Unit) string {
	if loader == nil {
		return "bootstrap"
	}
	return loader.Name
}
