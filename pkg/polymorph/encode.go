package polymorph

import (
	"fmt"
	"reflect"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// Encode converts v into a document whose first field is the discriminator
// of v's concrete type. base is the declared family type and selects the
// discriminator key; nil means v's own type. A nil v encodes to nil.
func (c *Codec) Encode(v any, base reflect.Type) (*gorkson.Document, error) {
	rv := reflect.ValueOf(v)
	var family *Type
	if base != nil {
		family = c.reg.Describe(base)
	}
	return c.encodeValue(newCallHook(c), rv, family)
}

func (c *Codec) encodeValue(h *callHook, v reflect.Value, family *Type) (*gorkson.Document, error) {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotObject, v.Type())
	}

	concrete := c.reg.Describe(v.Type())
	if family == nil {
		family = concrete
	}
	key := c.keyOf(family)
	if family.key == "" {
		key = c.keyOf(concrete)
	}

	h.guard.Arm(EncodePath)
	node, err := c.engine.EncodeValue(h, v, v.Type())
	h.guard.Disarm(EncodePath)
	if err != nil {
		return nil, err
	}

	doc, ok := node.(*gorkson.Document)
	if !ok || doc == nil {
		return nil, fmt.Errorf("%w: %s encoded to %T", ErrNotObject, v.Type(), node)
	}
	doc.Prepend(key, concrete.discriminator)
	return doc, nil
}
