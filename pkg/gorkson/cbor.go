package gorkson

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	cborEncMode, err = cbor.EncOptions{}.EncMode()
	if err != nil {
		panic("gorkson: CBOR encoder initialization failed: " + err.Error())
	}

	// Documents only use text keys; decode any-typed maps as
	// map[string]any instead of map[interface{}]interface{}.
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("gorkson: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORFormat reads and writes CBOR (RFC 8949). Documents are written as
// definite-length maps in field order. CBOR maps are decoded through Go maps,
// so decoded fields come back sorted by key.
type CBORFormat struct{}

// Name implements Format.
func (CBORFormat) Name() string { return "cbor" }

// ContentType implements Format.
func (CBORFormat) ContentType() string { return "application/cbor" }

// Marshal implements Format.
func (CBORFormat) Marshal(node any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCBOR(&buf, node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Format.
func (CBORFormat) Unmarshal(data []byte) (any, error) {
	var v any
	if err := cborDecMode.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromPlain(v), nil
}

// MarshalCBOR implements cbor.Marshaler.
func (d *Document) MarshalCBOR() ([]byte, error) {
	return CBORFormat{}.Marshal(d)
}

const (
	cborMajorArray = 4
	cborMajorMap   = 5
)

func writeCBOR(buf *bytes.Buffer, node any) error {
	switch n := node.(type) {
	case *Document:
		writeCBORHead(buf, cborMajorMap, uint64(n.Len()))
		var err error
		n.Range(func(key string, value any) bool {
			if err = writeCBOR(buf, key); err != nil {
				return false
			}
			err = writeCBOR(buf, value)
			return err == nil
		})
		return err
	case []any:
		writeCBORHead(buf, cborMajorArray, uint64(len(n)))
		for _, item := range n {
			if err := writeCBOR(buf, item); err != nil {
				return err
			}
		}
		return nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return writeCBOR(buf, i)
		}
		f, err := n.Float64()
		if err != nil {
			return err
		}
		return writeCBOR(buf, f)
	default:
		data, err := cborEncMode.Marshal(n)
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	}
}

// writeCBORHead writes the initial byte and argument of a data item.
func writeCBORHead(buf *bytes.Buffer, major byte, n uint64) {
	m := major << 5
	switch {
	case n < 24:
		buf.WriteByte(m | byte(n))
	case n <= 0xff:
		buf.WriteByte(m | 24)
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(m | 25)
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n))
	case n <= 0xffffffff:
		buf.WriteByte(m | 26)
		for shift := 24; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(n >> uint(shift)))
		}
	default:
		buf.WriteByte(m | 27)
		for shift := 56; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(n >> uint(shift)))
		}
	}
}

// fromPlain converts decoded Go maps and slices into document nodes. Map
// keys are sorted so the resulting field order is deterministic.
func fromPlain(v any) any {
	switch n := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := NewDocument()
		for _, k := range keys {
			doc.Set(k, fromPlain(n[k]))
		}
		return doc
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = fromPlain(item)
		}
		return out
	default:
		return v
	}
}
