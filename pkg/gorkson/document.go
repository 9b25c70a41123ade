package gorkson

import "strings"

// Document is an ordered mapping of field names to nodes. It mirrors a
// structured document object: field order is preserved through encoding and
// every wire format writes the fields in insertion order.
//
// Nodes stored in a Document are nil, bool, string, numbers, []any and
// *Document. A Document is not safe for concurrent mutation.
type Document struct {
	keys   []string
	values map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[string]any)}
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns a copy of the field names in order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the node stored under key (exact match).
func (d *Document) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// GetFold looks key up case-insensitively. An exact match wins over a folded
// one; otherwise the first folded match in field order is returned together
// with the key as stored in the document.
func (d *Document) GetFold(key string) (string, any, bool) {
	if d == nil {
		return "", nil, false
	}
	if v, ok := d.values[key]; ok {
		return key, v, true
	}
	for _, k := range d.keys {
		if strings.EqualFold(k, key) {
			return k, d.values[k], true
		}
	}
	return "", nil, false
}

// Set stores value under key. An existing field keeps its position.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Prepend stores value under key as the first field, moving the field to the
// front if it already exists.
func (d *Document) Prepend(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; ok {
		d.removeKey(key)
	}
	d.keys = append(d.keys, "")
	copy(d.keys[1:], d.keys)
	d.keys[0] = key
	d.values[key] = value
}

// Delete removes key. It reports whether the field existed.
func (d *Document) Delete(key string) bool {
	if d == nil {
		return false
	}
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	d.removeKey(key)
	return true
}

func (d *Document) removeKey(key string) {
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			return
		}
	}
}

// Range calls fn for each field in order until fn returns false.
func (d *Document) Range(fn func(key string, value any) bool) {
	if d == nil {
		return
	}
	for _, k := range d.keys {
		if !fn(k, d.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy: nested nodes are shared.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]any, len(d.values)),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

// ToMap converts the document and every nested document into plain
// map[string]any values. Field order is lost.
func (d *Document) ToMap() map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		out[k] = plainNode(d.values[k])
	}
	return out
}

func plainNode(node any) any {
	switch n := node.(type) {
	case *Document:
		return n.ToMap()
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = plainNode(item)
		}
		return out
	default:
		return node
	}
}
