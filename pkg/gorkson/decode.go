package gorkson

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

var jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

func (m *Marshaler) decodeInto(h Hook, dst reflect.Value, node any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("gorkson: exceeded max depth %d", maxDepth)
	}

	if dst.Kind() == reflect.Ptr {
		if node == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return m.decodeInto(h, dst.Elem(), node, depth+1)
	}

	if node == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if h != nil && (dst.Kind() == reflect.Struct || (dst.Kind() == reflect.Interface && dst.NumMethod() > 0)) {
		v, handled, err := h.DecodeStruct(dst.Type(), node)
		if err != nil {
			return err
		}
		if handled {
			return assign(dst, v)
		}
	}

	if ok, err := m.decodeUnmarshaler(dst, node); ok {
		return err
	}

	switch dst.Kind() {
	case reflect.Struct:
		doc, ok := node.(*Document)
		if !ok {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		return m.decodeStruct(h, dst, doc, depth)
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		dst.Set(reflect.ValueOf(node))
		return nil
	case reflect.Map:
		return m.decodeMap(h, dst, node, depth)
	case reflect.Slice:
		return m.decodeSlice(h, dst, node, depth)
	case reflect.Array:
		return m.decodeArray(h, dst, node, depth)
	case reflect.String:
		s, ok := node.(string)
		if !ok {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		dst.SetString(s)
		return nil
	case reflect.Bool:
		b, ok := node.(bool)
		if !ok {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(node)
		if err != nil || dst.OverflowInt(n) {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := toUint64(node)
		if err != nil || dst.OverflowUint(n) {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		dst.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(node)
		if err != nil || dst.OverflowFloat(f) {
			return &TypeError{Node: nodeKind(node), Type: dst.Type()}
		}
		dst.SetFloat(f)
		return nil
	default:
		return &UnsupportedTypeError{Type: dst.Type()}
	}
}

// assign stores a hook result into dst. Hooks return either a value of the
// target type or a pointer to it.
func assign(dst, v reflect.Value) error {
	if !v.IsValid() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	switch {
	case v.Type().AssignableTo(dst.Type()):
		dst.Set(v)
	case v.Kind() == reflect.Ptr && v.Elem().Type().AssignableTo(dst.Type()):
		dst.Set(v.Elem())
	default:
		return &TypeError{Node: v.Type().String(), Type: dst.Type()}
	}
	return nil
}

// decodeUnmarshaler honours json.Unmarshaler implementations by handing them
// the JSON form of node.
func (m *Marshaler) decodeUnmarshaler(dst reflect.Value, node any) (bool, error) {
	if !dst.CanAddr() || !reflect.PointerTo(dst.Type()).Implements(jsonUnmarshalerType) {
		return false, nil
	}
	data, err := json.Marshal(node)
	if err != nil {
		return true, err
	}
	return true, dst.Addr().Interface().(json.Unmarshaler).UnmarshalJSON(data)
}

func (m *Marshaler) decodeStruct(h Hook, dst reflect.Value, doc *Document, depth int) error {
	info := cachedStructInfo(dst.Type())
	var err error
	doc.Range(func(key string, value any) bool {
		f, ok := info.lookup(key)
		if !ok {
			if m.DisallowUnknownFields {
				err = &UnknownFieldError{Type: dst.Type(), Field: key}
				return false
			}
			return true
		}
		fv := fieldByIndexAlloc(dst, f.index)
		if !fv.IsValid() || !fv.CanSet() {
			return true
		}
		if e := m.decodeInto(h, fv, value, depth+1); e != nil {
			err = fmt.Errorf("%s.%s: %w", dst.Type().Name(), f.name, e)
			return false
		}
		return true
	})
	return err
}

func (m *Marshaler) decodeMap(h Hook, dst reflect.Value, node any, depth int) error {
	doc, ok := node.(*Document)
	if !ok {
		return &TypeError{Node: nodeKind(node), Type: dst.Type()}
	}
	mt := dst.Type()
	if mt.Key().Kind() != reflect.String {
		return &UnsupportedTypeError{Type: mt}
	}

	out := reflect.MakeMapWithSize(mt, doc.Len())
	var err error
	doc.Range(func(key string, value any) bool {
		elem := reflect.New(mt.Elem()).Elem()
		if e := m.decodeInto(h, elem, value, depth+1); e != nil {
			err = fmt.Errorf("[%s]: %w", key, e)
			return false
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(mt.Key()), elem)
		return true
	})
	if err != nil {
		return err
	}
	dst.Set(out)
	return nil
}

func (m *Marshaler) decodeSlice(h Hook, dst reflect.Value, node any, depth int) error {
	if s, ok := node.(string); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		dst.SetBytes(b)
		return nil
	}
	if b, ok := node.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
		dst.SetBytes(append([]byte(nil), b...))
		return nil
	}

	list, ok := node.([]any)
	if !ok {
		return &TypeError{Node: nodeKind(node), Type: dst.Type()}
	}
	out := reflect.MakeSlice(dst.Type(), len(list), len(list))
	for i, item := range list {
		if err := m.decodeInto(h, out.Index(i), item, depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func (m *Marshaler) decodeArray(h Hook, dst reflect.Value, node any, depth int) error {
	list, ok := node.([]any)
	if !ok {
		return &TypeError{Node: nodeKind(node), Type: dst.Type()}
	}
	for i := 0; i < dst.Len(); i++ {
		if i >= len(list) {
			dst.Index(i).Set(reflect.Zero(dst.Type().Elem()))
			continue
		}
		if err := m.decodeInto(h, dst.Index(i), list[i], depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func toInt64(node any) (int64, error) {
	if n, ok := node.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		node = f
	}
	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		return int64(f), nil
	}
	return 0, strconv.ErrSyntax
}

func toUint64(node any) (uint64, error) {
	if n, ok := node.(json.Number); ok {
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		node = f
	}
	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, strconv.ErrRange
		}
		return uint64(rv.Int()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < 0 || f > math.MaxUint64 {
			return 0, strconv.ErrRange
		}
		return uint64(f), nil
	}
	return 0, strconv.ErrSyntax
}

func toFloat64(node any) (float64, error) {
	if n, ok := node.(json.Number); ok {
		return n.Float64()
	}
	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, strconv.ErrSyntax
}

// nodeKind names the document kind of node for error messages.
func nodeKind(node any) string {
	switch node.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case *Document:
		return "object"
	case []any:
		return "array"
	case []byte:
		return "bytes"
	}
	switch reflect.ValueOf(node).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "number"
	}
	return fmt.Sprintf("%T", node)
}
