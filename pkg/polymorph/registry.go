package polymorph

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// TypeOption configures a type passed to Builder.Register.
type TypeOption func(*typeSpec)

type typeSpec struct {
	goType         reflect.Type
	name           string
	namespace      string
	parent         reflect.Type
	abstract       bool
	key            string
	variants       []variantSpec
	knownTypes     []reflect.Type
	knownTypesFunc func() []reflect.Type
}

type variantSpec struct {
	value  string
	goType reflect.Type
}

// WithName overrides the short name. It defaults to the Go type name.
func WithName(name string) TypeOption {
	return func(s *typeSpec) { s.name = name }
}

// WithNamespace overrides the namespace. It defaults to the Go package name.
func WithNamespace(namespace string) TypeOption {
	return func(s *typeSpec) { s.namespace = namespace }
}

// WithParent links the type below parent. Variants declared on a base get
// that base as parent unless they say otherwise.
func WithParent(parent reflect.Type) TypeOption {
	return func(s *typeSpec) { s.parent = indirect(parent) }
}

// WithAbstract marks a struct type as not decodable on its own.
func WithAbstract() TypeOption {
	return func(s *typeSpec) { s.abstract = true }
}

// WithKey sets the discriminator field name for the type and its
// descendants.
func WithKey(key string) TypeOption {
	return func(s *typeSpec) { s.key = key }
}

// WithVariant declares that value selects goType when decoding against the
// registered type.
func WithVariant(value string, goType reflect.Type) TypeOption {
	return func(s *typeSpec) {
		s.variants = append(s.variants, variantSpec{value: value, goType: indirect(goType)})
	}
}

// WithKnownTypes lists candidate subtypes matched by short name after the
// declared variants have been tried.
func WithKnownTypes(types ...reflect.Type) TypeOption {
	return func(s *typeSpec) {
		for _, t := range types {
			s.knownTypes = append(s.knownTypes, indirect(t))
		}
	}
}

// WithKnownTypesFunc supplies candidate subtypes lazily. When set it replaces
// the WithKnownTypes list of the same type.
func WithKnownTypesFunc(fn func() []reflect.Type) TypeOption {
	return func(s *typeSpec) { s.knownTypesFunc = fn }
}

// Builder collects type registrations. It is not safe for concurrent use.
type Builder struct {
	specs  []*typeSpec
	byType map[reflect.Type]*typeSpec
	errs   []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{byType: make(map[reflect.Type]*typeSpec)}
}

// Register adds goType to the registry being built. Pointer types are
// registered as their element type. Errors are reported by Build.
func (b *Builder) Register(goType reflect.Type, opts ...TypeOption) *Builder {
	t := indirect(goType)
	switch {
	case t == nil:
		b.errs = append(b.errs, registryError("nil type"))
		return b
	case t.Kind() != reflect.Struct && t.Kind() != reflect.Interface:
		b.errs = append(b.errs, registryError("%s is not a struct or interface type", t))
		return b
	}
	if _, dup := b.byType[t]; dup {
		b.errs = append(b.errs, registryError("%s registered twice", t))
		return b
	}

	s := &typeSpec{goType: t}
	for _, opt := range opts {
		opt(s)
	}
	b.specs = append(b.specs, s)
	b.byType[t] = s
	return b
}

// Build links the registered types into a Registry.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	// Variants and known types that were only named by a declaration become
	// types of their own, parented to the first base that declares them.
	declaredBy := make(map[reflect.Type]reflect.Type)
	adopt := func(base, goType reflect.Type, what string) error {
		if _, ok := declaredBy[goType]; !ok && goType != base {
			declaredBy[goType] = base
		}
		if _, ok := b.byType[goType]; ok {
			return nil
		}
		if k := goType.Kind(); k != reflect.Struct && k != reflect.Interface {
			return registryError("%s of %s: %s is not a struct or interface type", what, base, goType)
		}
		vs := &typeSpec{goType: goType}
		b.specs = append(b.specs, vs)
		b.byType[goType] = vs
		return nil
	}
	for i := 0; i < len(b.specs); i++ {
		s := b.specs[i]
		for _, v := range s.variants {
			if v.goType == nil {
				return nil, registryError("variant %q of %s has no type", v.value, s.goType)
			}
			if err := adopt(s.goType, v.goType, fmt.Sprintf("variant %q", v.value)); err != nil {
				return nil, err
			}
		}
		for _, k := range s.knownTypes {
			if k == nil {
				return nil, registryError("known type of %s is nil", s.goType)
			}
			if err := adopt(s.goType, k, "known type"); err != nil {
				return nil, err
			}
		}
	}

	r := &Registry{
		byGo:     make(map[reflect.Type]*Type, len(b.specs)),
		byName:   make(map[string]*Type, len(b.specs)),
		byPath:   make(map[string]*Type, len(b.specs)),
		children: make(map[*Type][]*Type),
	}
	for _, s := range b.specs {
		t := &Type{
			name:           s.name,
			namespace:      s.namespace,
			goType:         s.goType,
			abstract:       s.abstract,
			ownKey:         s.key,
			knownTypes:     s.knownTypes,
			knownTypesFunc: s.knownTypesFunc,
			registered:     true,
		}
		if t.name == "" {
			t.name = s.goType.Name()
		}
		if t.name == "" {
			return nil, registryError("%s has no name; use WithName", s.goType)
		}
		if s.namespace == "" {
			t.namespace = defaultNamespace(s.goType)
		}
		qn := t.QualifiedName()
		if other, dup := r.byName[qn]; dup {
			return nil, registryError("qualified name %q used by both %s and %s", qn, other.goType, s.goType)
		}
		r.types = append(r.types, t)
		r.byGo[s.goType] = t
		r.byName[qn] = t
		r.byPath[goPath(s.goType)] = t
	}

	for _, s := range b.specs {
		t := r.byGo[s.goType]
		parentType := s.parent
		if parentType == nil {
			parentType = declaredBy[s.goType]
		}
		if parentType != nil {
			p, ok := r.byGo[parentType]
			if !ok {
				return nil, registryError("%s: parent %s is not registered", s.goType, parentType)
			}
			t.parent = p
		}

		seen := make(map[string]reflect.Type, len(s.variants))
		for _, v := range s.variants {
			if first, dup := seen[v.value]; dup {
				return nil, &DuplicateDiscriminatorError{Base: s.goType, Value: v.value, First: first, Second: v.goType}
			}
			seen[v.value] = v.goType
			t.variants = append(t.variants, Variant{Value: v.value, Type: r.byGo[v.goType], Base: t})
		}
	}

	for _, t := range r.types {
		if err := checkAncestry(t); err != nil {
			return nil, err
		}
	}
	for _, t := range r.types {
		for _, v := range t.variants {
			if v.Type != t && !v.Type.DescendsFrom(t) {
				return nil, registryError("variant %q: %s does not descend from %s", v.Value, v.Type.goType, t.goType)
			}
			if t.goType.Kind() == reflect.Interface && !implements(v.Type.goType, t.goType) {
				return nil, registryError("variant %q: %s does not implement %s", v.Value, v.Type.goType, t.goType)
			}
		}
		for _, k := range t.knownTypes {
			kt := r.byGo[k]
			if kt != t && !kt.DescendsFrom(t) {
				return nil, registryError("known type %s does not descend from %s", k, t.goType)
			}
			if t.goType.Kind() == reflect.Interface && kt != t && !implements(k, t.goType) {
				return nil, registryError("known type %s does not implement %s", k, t.goType)
			}
		}
	}

	for _, t := range r.types {
		r.link(t)
		if t.parent != nil {
			r.children[t.parent] = append(r.children[t.parent], t)
		}
	}
	return r, nil
}

func checkAncestry(t *Type) error {
	seen := map[*Type]bool{}
	for cur := t; cur != nil; cur = cur.parent {
		if seen[cur] {
			return registryError("parent cycle through %s", t.goType)
		}
		seen[cur] = true
	}
	return nil
}

// Registry is an immutable set of types and their discriminator
// declarations. It is safe for concurrent use.
type Registry struct {
	types    []*Type
	byGo     map[reflect.Type]*Type
	byName   map[string]*Type
	byPath   map[string]*Type
	children map[*Type][]*Type

	// adhoc caches descriptors of unregistered Go types.
	adhoc sync.Map // reflect.Type -> *Type
}

// link computes the inherited key, the discriminator value and the merged
// declaration table of t.
func (r *Registry) link(t *Type) {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.ownKey != "" {
			t.key = cur.ownKey
			break
		}
	}
	t.discriminator = discriminatorOf(t)

	// Own declarations first, then inherited ones that stay within t.
	t.byValue = make(map[string]*Type)
	for cur := t; cur != nil; cur = cur.parent {
		for _, v := range cur.variants {
			if cur != t && !v.Type.DescendsFrom(t) {
				continue
			}
			if _, ok := t.byValue[v.Value]; ok {
				continue
			}
			t.byValue[v.Value] = v.Type
			t.declarations = append(t.declarations, v)
		}
	}
}

// Lookup returns the registered descriptor of goType.
func (r *Registry) Lookup(goType reflect.Type) (*Type, bool) {
	t, ok := r.byGo[indirect(goType)]
	return t, ok
}

// LookupName returns the type registered under a qualified name.
func (r *Registry) LookupName(qualified string) (*Type, bool) {
	t, ok := r.byName[qualified]
	return t, ok
}

// Types returns every registered type in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.types))
	copy(out, r.types)
	return out
}

// Bases returns the types that declare variants or have registered children.
func (r *Registry) Bases() []*Type {
	var out []*Type
	for _, t := range r.types {
		if len(t.variants) > 0 || len(r.children[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Children returns the types registered directly below t.
func (r *Registry) Children(t *Type) []*Type {
	out := make([]*Type, len(r.children[t]))
	copy(out, r.children[t])
	return out
}

// Descendants returns every registered type below t, in registration order.
func (r *Registry) Descendants(t *Type) []*Type {
	var out []*Type
	for _, c := range r.types {
		if c != t && c.DescendsFrom(t) {
			out = append(out, c)
		}
	}
	return out
}

// DeclarationsFor returns the declarations visible from base: its own in
// declaration order, then those inherited from ancestors that select a
// descendant of base. The first declaration of a value shadows later ones.
func (r *Registry) DeclarationsFor(base reflect.Type) []Variant {
	t, ok := r.Lookup(base)
	if !ok {
		return nil
	}
	out := make([]Variant, len(t.declarations))
	copy(out, t.declarations)
	return out
}

// lookupPath finds a registered type by its import path qualified Go name.
func (r *Registry) lookupPath(path string) (*Type, bool) {
	t, ok := r.byPath[path]
	return t, ok
}
