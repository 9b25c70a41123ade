// Package gorkson is a reflection based document codec. It converts Go values
// to ordered documents and back using gork tags, falling back to json tags and
// Go field names. Wire formats (JSON, YAML, CBOR, MessagePack) only ever see
// the document form, so every format shares the same field naming rules.
//
// A Hook can take over individual struct values while a value or a document
// is being walked. The polymorph package uses it to inject and consume
// discriminator fields without gorkson knowing about type families.
package gorkson

import (
	"encoding/json"
	"reflect"
)

// maxDepth bounds recursion so that cyclic values fail instead of
// overflowing the stack.
const maxDepth = 1000

// Hook intercepts struct values while a Marshaler walks a value or a
// document. declared is the static type at the visit point with pointers
// removed; at the root it is the type given by the caller.
//
// Returning handled == false lets the Marshaler continue with its own field by
// field handling.
type Hook interface {
	EncodeStruct(declared reflect.Type, v reflect.Value) (node any, handled bool, err error)
	DecodeStruct(declared reflect.Type, node any) (v reflect.Value, handled bool, err error)
}

// Marshaler handles document conversion using gork tags.
type Marshaler struct {
	// DisallowUnknownFields makes decoding fail when a document field does
	// not map onto a struct field.
	DisallowUnknownFields bool
}

// Encode converts v into a document node.
func (m *Marshaler) Encode(v any) (any, error) {
	return m.EncodeValue(nil, reflect.ValueOf(v), nil)
}

// EncodeValue converts v into a document node, consulting h for every struct
// value. declared may be nil, in which case the type of v is used.
func (m *Marshaler) EncodeValue(h Hook, v reflect.Value, declared reflect.Type) (any, error) {
	if declared == nil && v.IsValid() {
		declared = v.Type()
	}
	return m.encode(h, v, indirectType(declared), 0)
}

// Decode stores node into the value pointed to by out.
func (m *Marshaler) Decode(node any, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrInvalidTarget
	}
	return m.decodeInto(nil, rv.Elem(), node, 0)
}

// DecodeValue decodes node into a new value of type t, consulting h for every
// struct and non-empty interface target.
func (m *Marshaler) DecodeValue(h Hook, node any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if err := m.decodeInto(h, out, node, 0); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

// HasField reports whether the struct type t (or the struct it points to)
// declares a document field named exactly name.
func (m *Marshaler) HasField(t reflect.Type, name string) bool {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	_, ok := cachedStructInfo(t).byName[name]
	return ok
}

// Fields returns the document field names of the struct type t in encoding
// order.
func (m *Marshaler) Fields(t reflect.Type) []string {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	info := cachedStructInfo(t)
	names := make([]string, len(info.fields))
	for i, f := range info.fields {
		names[i] = f.name
	}
	return names
}

// StructField is one document field of a struct type.
type StructField struct {
	Name      string
	OmitEmpty bool
	reflect.StructField
}

// StructFields returns the document fields of the struct type t in encoding
// order, with embedded structs flattened.
func (m *Marshaler) StructFields(t reflect.Type) []StructField {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	info := cachedStructInfo(t)
	out := make([]StructField, len(info.fields))
	for i, f := range info.fields {
		out[i] = StructField{Name: f.name, OmitEmpty: f.omitEmpty, StructField: t.FieldByIndex(f.index)}
	}
	return out
}

// MarshalToJSON marshals a value using gork tags for field names.
func (m *Marshaler) MarshalToJSON(v any) ([]byte, error) {
	node, err := m.Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

// UnmarshalFromJSON unmarshals JSON into a value using gork tags for field
// names.
func (m *Marshaler) UnmarshalFromJSON(data []byte, v any) error {
	node, err := ParseJSON(data)
	if err != nil {
		return err
	}
	return m.Decode(node, v)
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Global instance for convenience.
var defaultMarshaler = &Marshaler{}

// Marshal marshals using gork tags.
func Marshal(v any) ([]byte, error) {
	return defaultMarshaler.MarshalToJSON(v)
}

// Unmarshal unmarshals using gork tags.
func Unmarshal(data []byte, v any) error {
	return defaultMarshaler.UnmarshalFromJSON(data, v)
}
