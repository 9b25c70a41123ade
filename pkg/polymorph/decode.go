package polymorph

import (
	"fmt"
	"reflect"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// Decode decodes node against the family type base and returns a pointer to
// the resolved concrete value. A nil or empty document decodes to nil.
//
// The discriminator field is matched case-insensitively. When it is missing
// or null, base itself is the target. The field is dropped before decoding
// unless the target declares a field with exactly that name. node is never
// modified.
func (c *Codec) Decode(node any, base reflect.Type) (any, error) {
	if base == nil {
		return nil, fmt.Errorf("polymorph: decode needs a base type")
	}
	v, err := c.decodeNode(newCallHook(c), node, c.reg.Describe(base))
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return v.Interface(), nil
}

func (c *Codec) decodeNode(h *callHook, node any, base *Type) (reflect.Value, error) {
	if node == nil {
		return reflect.Value{}, nil
	}
	doc, ok := node.(*gorkson.Document)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: cannot decode %T into %s", ErrNotObject, node, base.goType)
	}
	if doc.Len() == 0 {
		return reflect.Value{}, nil
	}

	key := c.keyOf(base)
	target, value, err := c.resolve(doc, base)
	if err != nil {
		return reflect.Value{}, err
	}

	if stored, _, found := doc.GetFold(key); found && !c.engine.HasField(target.goType, key) {
		doc = doc.Clone()
		doc.Delete(stored)
	}

	if target.Abstract() {
		return reflect.Value{}, &AbstractTypeError{Type: target.goType, Value: value}
	}

	h.guard.Arm(DecodePath)
	v, err := c.engine.DecodeValue(h, doc, target.goType)
	h.guard.Disarm(DecodePath)
	if err != nil {
		return reflect.Value{}, err
	}
	if v.CanAddr() {
		return v.Addr(), nil
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr, nil
}

// Resolve reports the concrete type a document would decode to against the
// family type base, without decoding it. A document without a discriminator
// resolves to base itself.
func (c *Codec) Resolve(doc *gorkson.Document, base reflect.Type) (*Type, error) {
	if base == nil {
		return nil, fmt.Errorf("polymorph: resolve needs a base type")
	}
	t, _, err := c.resolve(doc, c.reg.Describe(base))
	return t, err
}

func (c *Codec) resolve(doc *gorkson.Document, base *Type) (*Type, string, error) {
	key, raw, found := doc.GetFold(c.keyOf(base))
	value, present, err := discriminatorValue(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: field %q of %s holds %s", err, key, base.goType, nodeKind(raw))
	}
	if !found || !present {
		return base, "", nil
	}
	t, err := c.resolver.SubtypeFor(base, value, doc)
	if err != nil {
		return nil, value, err
	}
	return t, value, nil
}

func nodeKind(node any) string {
	switch node.(type) {
	case *gorkson.Document, map[string]any, map[any]any:
		return "an object"
	case []any:
		return "an array"
	}
	return fmt.Sprintf("%T", node)
}
