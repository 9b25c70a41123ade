package gorkson

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MsgPackFormat reads and writes MessagePack. Maps are walked entry by entry
// in both directions, so field order is preserved.
type MsgPackFormat struct{}

// Name implements Format.
func (MsgPackFormat) Name() string { return "msgpack" }

// ContentType implements Format.
func (MsgPackFormat) ContentType() string { return "application/msgpack" }

// Marshal implements Format.
func (MsgPackFormat) Marshal(node any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := writeMsgPack(enc, node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Format.
func (MsgPackFormat) Unmarshal(data []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return readMsgPack(dec)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (d *Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	return writeMsgPack(enc, d)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (d *Document) DecodeMsgpack(dec *msgpack.Decoder) error {
	node, err := readMsgPack(dec)
	if err != nil {
		return err
	}
	doc, ok := node.(*Document)
	if !ok {
		return &TypeError{Node: nodeKind(node), Type: documentType}
	}
	*d = *doc
	return nil
}

func writeMsgPack(enc *msgpack.Encoder, node any) error {
	switch n := node.(type) {
	case *Document:
		if err := enc.EncodeMapLen(n.Len()); err != nil {
			return err
		}
		var err error
		n.Range(func(key string, value any) bool {
			if err = enc.EncodeString(key); err != nil {
				return false
			}
			err = writeMsgPack(enc, value)
			return err == nil
		})
		return err
	case []any:
		if err := enc.EncodeArrayLen(len(n)); err != nil {
			return err
		}
		for _, item := range n {
			if err := writeMsgPack(enc, item); err != nil {
				return err
			}
		}
		return nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return enc.EncodeInt(i)
		}
		f, err := n.Float64()
		if err != nil {
			return err
		}
		return enc.EncodeFloat64(f)
	default:
		return enc.Encode(n)
	}
}

func readMsgPack(dec *msgpack.Decoder) (any, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		doc := NewDocument()
		for i := 0; i < n; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			value, err := readMsgPack(dec)
			if err != nil {
				return nil, err
			}
			doc.Set(key, value)
		}
		return doc, nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		list := make([]any, 0, n)
		for i := 0; i < n; i++ {
			value, err := readMsgPack(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	default:
		return dec.DecodeInterface()
	}
}
