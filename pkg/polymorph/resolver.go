package polymorph

import (
	"reflect"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// DefaultTypeField is the document field read by the type field strategy.
const DefaultTypeField = "$type"

// strategy is one step of subtype resolution. It reports ok == false to pass
// the value on to the next strategy.
type strategy struct {
	name    string
	resolve func(r *Resolver, base *Type, value string, doc *gorkson.Document) (*Type, bool)
}

// strategies is the resolution order. The first strategy that matches wins.
var strategies = []strategy{
	{name: "declaration", resolve: (*Resolver).byDeclaration},
	{name: "identity", resolve: (*Resolver).byIdentity},
	{name: "known-types", resolve: (*Resolver).byKnownTypes},
	{name: "convention", resolve: (*Resolver).byConvention},
	{name: "type-field", resolve: (*Resolver).byTypeField},
}

// Strategies returns the names of the resolution steps in the order they are
// tried.
func Strategies() []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.name
	}
	return names
}

// Resolver maps an observed discriminator value to a concrete type.
type Resolver struct {
	reg       *Registry
	typeField string
}

// NewResolver returns a Resolver over reg. Only WithTypeField affects it.
func NewResolver(reg *Registry, opts ...Option) *Resolver {
	cfg := newConfig(opts)
	return &Resolver{reg: reg, typeField: cfg.typeField}
}

// SubtypeFor resolves value against base. doc is the document the value was
// read from; it is only consulted by the type field strategy.
func (r *Resolver) SubtypeFor(base *Type, value string, doc *gorkson.Document) (*Type, error) {
	t, _, err := r.Explain(base, value, doc)
	return t, err
}

// Explain is SubtypeFor that also names the strategy that matched.
func (r *Resolver) Explain(base *Type, value string, doc *gorkson.Document) (*Type, string, error) {
	for _, s := range strategies {
		if t, ok := s.resolve(r, base, value, doc); ok {
			return t, s.name, nil
		}
	}
	return nil, "", &UnresolvedSubtypeError{Base: base.goType, Value: value}
}

func (r *Resolver) byDeclaration(base *Type, value string, _ *gorkson.Document) (*Type, bool) {
	t, ok := base.byValue[value]
	return t, ok
}

func (r *Resolver) byIdentity(base *Type, value string, _ *gorkson.Document) (*Type, bool) {
	return base, value == base.name
}

// byKnownTypes walks base and its ancestors. The first type that supplies a
// known types func decides the outcome, whether it matches or not.
func (r *Resolver) byKnownTypes(base *Type, value string, _ *gorkson.Document) (*Type, bool) {
	for cur := base; cur != nil; cur = cur.parent {
		if cur.knownTypesFunc != nil {
			return r.matchKnown(base, value, cur.knownTypesFunc())
		}
		if t, ok := r.matchKnown(base, value, cur.knownTypes); ok {
			return t, true
		}
	}
	return nil, false
}

func (r *Resolver) matchKnown(base *Type, value string, candidates []reflect.Type) (*Type, bool) {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		t := r.reg.Describe(c)
		if t.name == value && t.DescendsFrom(base) {
			return t, true
		}
	}
	return nil, false
}

func (r *Resolver) byConvention(base *Type, value string, _ *gorkson.Document) (*Type, bool) {
	t, ok := r.reg.LookupName(qualify(base.namespace, value))
	if !ok || !t.DescendsFrom(base) {
		return nil, false
	}
	return t, true
}

// byTypeField trusts the document to name its own type. It is off unless the
// codec was built WithTypeField. When on, any caller controlled document can
// pick any registered descendant of base.
func (r *Resolver) byTypeField(base *Type, _ string, doc *gorkson.Document) (*Type, bool) {
	if r.typeField == "" || doc == nil {
		return nil, false
	}
	raw, ok := doc.Get(r.typeField)
	if !ok {
		return nil, false
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return nil, false
	}
	t, ok := r.reg.LookupName(name)
	if !ok {
		t, ok = r.reg.lookupPath(name)
	}
	if !ok || !t.DescendsFrom(base) {
		return nil, false
	}
	return t, true
}
