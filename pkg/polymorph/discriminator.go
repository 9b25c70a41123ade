package polymorph

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// DiscriminatorFor returns the discriminator value written for goType.
func (r *Registry) DiscriminatorFor(goType reflect.Type) string {
	if goType == nil {
		return ""
	}
	return r.Describe(goType).discriminator
}

// Describe returns the registered descriptor of goType, or builds one on the
// fly. An unregistered type is parented to the first registered interface
// it implements. goType must not be nil.
func (r *Registry) Describe(goType reflect.Type) *Type {
	goType = indirect(goType)
	if t, ok := r.byGo[goType]; ok {
		return t
	}
	if t, ok := r.adhoc.Load(goType); ok {
		return t.(*Type)
	}

	t := &Type{
		name:      goType.Name(),
		namespace: defaultNamespace(goType),
		goType:    goType,
	}
	if t.name == "" {
		t.name = goType.String()
	}
	for _, candidate := range r.types {
		if candidate.goType.Kind() == reflect.Interface && implements(goType, candidate.goType) {
			t.parent = candidate
			break
		}
	}
	if t.parent != nil {
		t.key = t.parent.key
	}
	t.discriminator = discriminatorOf(t)
	t.byValue = map[string]*Type{}

	actual, _ := r.adhoc.LoadOrStore(goType, t)
	return actual.(*Type)
}

// discriminatorOf walks t and its ancestors looking for a declaration that
// names exactly t. The short name is the fallback.
func discriminatorOf(t *Type) string {
	for cur := t; cur != nil; cur = cur.parent {
		for _, v := range cur.variants {
			if v.Type.goType == t.goType {
				return v.Value
			}
		}
	}
	return t.name
}

// discriminatorValue turns the raw discriminator node into the value the
// resolver matches on. It reports false for a null node. Objects and arrays
// are rejected with ErrInvalidDiscriminator.
func discriminatorValue(raw any) (string, bool, error) {
	switch v := raw.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case json.Number:
		return v.String(), true, nil
	case *gorkson.Document, []any, map[string]any, map[any]any:
		return "", false, ErrInvalidDiscriminator
	default:
		return fmt.Sprint(v), true, nil
	}
}
