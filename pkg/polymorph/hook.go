package polymorph

import (
	"reflect"
)

// callHook connects one top-level codec call to the engine. It owns the
// call's Guard, so nested engine calls made for the same top-level call see
// the same arming while concurrent calls never do.
type callHook struct {
	c     *Codec
	guard *Guard
}

func newCallHook(c *Codec) *callHook {
	return &callHook{c: c, guard: &Guard{}}
}

// EncodeStruct implements gorkson.Hook.
func (h *callHook) EncodeStruct(declared reflect.Type, v reflect.Value) (any, bool, error) {
	if h.guard.Consume(EncodePath) {
		return nil, false, nil
	}
	base, ok := h.c.familyOf(declared, v.Type())
	if !ok {
		return nil, false, nil
	}
	doc, err := h.c.encodeValue(h, v, base)
	if err != nil {
		return nil, true, err
	}
	if doc == nil {
		return nil, true, nil
	}
	return doc, true, nil
}

// DecodeStruct implements gorkson.Hook.
func (h *callHook) DecodeStruct(declared reflect.Type, node any) (reflect.Value, bool, error) {
	if h.guard.Consume(DecodePath) {
		return reflect.Value{}, false, nil
	}
	base, ok := h.c.reg.Lookup(declared)
	if !ok {
		return reflect.Value{}, false, nil
	}
	v, err := h.c.decodeNode(h, node, base)
	return v, true, err
}

// familyOf decides whether a struct value met by the engine is polymorphic.
// The declared type wins when it is registered; otherwise the value's own
// type, or the first registered interface it implements, is used.
func (c *Codec) familyOf(declared, concrete reflect.Type) (*Type, bool) {
	if declared != nil {
		if t, ok := c.reg.Lookup(declared); ok {
			return t, true
		}
	}
	if t, ok := c.reg.Lookup(concrete); ok {
		return t, true
	}
	if t := c.reg.Describe(concrete); t.parent != nil {
		return t.parent, true
	}
	return nil, false
}
