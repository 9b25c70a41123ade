package gorkson

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

func (m *Marshaler) encode(h Hook, v reflect.Value, declared reflect.Type, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("gorkson: exceeded max depth %d", maxDepth)
	}

	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	if h != nil && v.Kind() == reflect.Struct {
		node, handled, err := h.EncodeStruct(declared, v)
		if err != nil || handled {
			return node, err
		}
	}

	if node, ok, err := m.encodeMarshaler(v); ok {
		return node, err
	}

	switch v.Kind() {
	case reflect.Struct:
		return m.encodeStruct(h, v, depth)
	case reflect.Map:
		return m.encodeMap(h, v, depth)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		return m.encodeList(h, v, depth)
	case reflect.Array:
		return m.encodeList(h, v, depth)
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	default:
		return nil, &UnsupportedTypeError{Type: v.Type()}
	}
}

// encodeMarshaler honours json.Marshaler implementations, including pointer
// receivers on addressable values.
func (m *Marshaler) encodeMarshaler(v reflect.Value) (any, bool, error) {
	if !v.CanInterface() {
		return nil, false, nil
	}

	var marshaler json.Marshaler
	switch {
	case v.Type().Implements(jsonMarshalerType):
		marshaler = v.Interface().(json.Marshaler)
	case v.CanAddr() && reflect.PointerTo(v.Type()).Implements(jsonMarshalerType):
		marshaler = v.Addr().Interface().(json.Marshaler)
	default:
		return nil, false, nil
	}

	if doc, ok := marshaler.(*Document); ok {
		return doc, true, nil
	}

	data, err := marshaler.MarshalJSON()
	if err != nil {
		return nil, true, err
	}
	node, err := ParseJSON(data)
	return node, true, err
}

func (m *Marshaler) encodeStruct(h Hook, v reflect.Value, depth int) (any, error) {
	info := cachedStructInfo(v.Type())
	doc := NewDocument()
	for _, f := range info.fields {
		fv, ok := fieldByIndex(v, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		node, err := m.encode(h, fv, indirectType(f.typ), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", v.Type().Name(), f.name, err)
		}
		doc.Set(f.name, node)
	}
	return doc, nil
}

// encodeMap writes map entries sorted by key so output is deterministic.
func (m *Marshaler) encodeMap(h Hook, v reflect.Value, depth int) (any, error) {
	if v.IsNil() {
		return nil, nil
	}

	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKeyString(iter.Key())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	elem := indirectType(v.Type().Elem())
	doc := NewDocument()
	for _, e := range entries {
		node, err := m.encode(h, e.val, elem, depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%s]: %w", e.key, err)
		}
		doc.Set(e.key, node)
	}
	return doc, nil
}

func (m *Marshaler) encodeList(h Hook, v reflect.Value, depth int) (any, error) {
	elem := indirectType(v.Type().Elem())
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		node, err := m.encode(h, v.Index(i), elem, depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = node
	}
	return out, nil
}

func mapKeyString(k reflect.Value) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprint(k.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprint(k.Uint()), nil
	default:
		return "", &UnsupportedTypeError{Type: k.Type()}
	}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
