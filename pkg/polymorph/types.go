package polymorph

import (
	"reflect"
	"strings"
)

// DefaultKey is the discriminator field name used when neither the type
// family nor the codec names one.
const DefaultKey = "discriminator"

// Type describes one Go type in a polymorphic family. Types are created by
// Builder.Build and are read-only afterwards.
type Type struct {
	name      string
	namespace string
	goType    reflect.Type
	parent    *Type
	abstract  bool
	ownKey    string

	variants       []Variant
	knownTypes     []reflect.Type
	knownTypesFunc func() []reflect.Type

	// Filled in by the registry once the hierarchy is linked.
	key           string
	discriminator string
	declarations  []Variant
	byValue       map[string]*Type
	registered    bool
}

// Variant is one discriminator declaration: Value selects Type when a
// document is decoded against Base.
type Variant struct {
	Value string
	Type  *Type
	Base  *Type
}

// Name returns the short type name.
func (t *Type) Name() string { return t.name }

// Namespace returns the namespace used for convention lookups.
func (t *Type) Namespace() string { return t.namespace }

// QualifiedName returns namespace.name, or the name alone when the namespace
// is empty.
func (t *Type) QualifiedName() string {
	return qualify(t.namespace, t.name)
}

// GoType returns the described Go type. It is a struct or an interface type,
// never a pointer.
func (t *Type) GoType() reflect.Type { return t.goType }

// Parent returns the parent type, or nil for a root.
func (t *Type) Parent() *Type { return t.parent }

// Abstract reports whether values of exactly this type cannot be decoded.
// Interface types are always abstract.
func (t *Type) Abstract() bool { return t.abstract || t.goType.Kind() == reflect.Interface }

// Key returns the discriminator field name declared by this type or its
// nearest ancestor, or "" when none declares one.
func (t *Type) Key() string { return t.key }

// Discriminator returns the value written for this type when it is encoded.
func (t *Type) Discriminator() string { return t.discriminator }

// Variants returns the declarations made by this type itself, in declaration
// order.
func (t *Type) Variants() []Variant {
	out := make([]Variant, len(t.variants))
	copy(out, t.variants)
	return out
}

// Registered reports whether the type came from Builder.Register or from a
// variant declaration, as opposed to being described on the fly.
func (t *Type) Registered() bool { return t.registered }

// DescendsFrom reports whether t is base or has base as an ancestor. When
// base is an interface, implementing it is enough.
func (t *Type) DescendsFrom(base *Type) bool {
	if t == nil || base == nil {
		return false
	}
	for cur := t; cur != nil; cur = cur.parent {
		if cur == base || cur.goType == base.goType {
			return true
		}
	}
	if base.goType.Kind() == reflect.Interface && t.goType != base.goType {
		return implements(t.goType, base.goType)
	}
	return false
}

func (t *Type) String() string { return t.QualifiedName() }

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// defaultNamespace is the package qualifier of a Go type, e.g. "models" for
// models.ItemA.
func defaultNamespace(t reflect.Type) string {
	s := t.String()
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i]
	}
	return ""
}

// goPath is the import path qualified Go name, e.g.
// "github.com/acme/app/models.ItemA".
func goPath(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

func implements(t, iface reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return t.Implements(iface)
	}
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// TypeOf returns the reflect.Type of T. Unlike reflect.TypeOf it works for
// interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
