package gorkson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"
)

// JSONFormat reads and writes JSON. Objects are parsed into *Document so that
// field order survives a round trip.
type JSONFormat struct {
	// AllowComments strips // and /* */ comments and trailing commas before
	// parsing.
	AllowComments bool
	// Indent, when set, pretty-prints output using the given indent string.
	Indent string
}

// Name implements Format.
func (JSONFormat) Name() string { return "json" }

// ContentType implements Format.
func (JSONFormat) ContentType() string { return "application/json" }

// Marshal implements Format.
func (f JSONFormat) Marshal(node any) ([]byte, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	if f.Indent == "" {
		return data, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", f.Indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Format.
func (f JSONFormat) Unmarshal(data []byte) (any, error) {
	if f.AllowComments {
		data = jsonc.ToJSON(data)
	}
	return ParseJSON(data)
}

// ParseJSON parses a single JSON value into document nodes. Numbers are kept
// as json.Number.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := parseJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("gorkson: unexpected data after top-level JSON value")
	}
	return node, nil
}

func parseJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		doc := NewDocument()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("gorkson: unexpected object key %v", keyTok)
			}
			value, err := parseJSONValue(dec)
			if err != nil {
				return nil, err
			}
			doc.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return doc, nil
	case '[':
		list := []any{}
		for dec.More() {
			value, err := parseJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("gorkson: unexpected delimiter %v", delim)
	}
}

// MarshalJSON writes the fields in document order.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object, keeping field order.
func (d *Document) UnmarshalJSON(data []byte) error {
	node, err := ParseJSON(data)
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
