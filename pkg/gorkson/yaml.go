package gorkson

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormat reads and writes YAML through yaml.Node so mapping order is
// preserved in both directions.
type YAMLFormat struct{}

// Name implements Format.
func (YAMLFormat) Name() string { return "yaml" }

// ContentType implements Format.
func (YAMLFormat) ContentType() string { return "application/yaml" }

// Marshal implements Format.
func (YAMLFormat) Marshal(node any) ([]byte, error) {
	n, err := toYAMLNode(node)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(n)
}

// Unmarshal implements Format.
func (YAMLFormat) Unmarshal(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, nil
	}
	return fromYAMLNode(&root)
}

// MarshalYAML implements yaml.Marshaler.
func (d *Document) MarshalYAML() (interface{}, error) {
	return toYAMLNode(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	node, err := fromYAMLNode(value)
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

func toYAMLNode(node any) (*yaml.Node, error) {
	switch n := node.(type) {
	case *Document:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		n.Range(func(key string, value any) bool {
			var v *yaml.Node
			v, err = toYAMLNode(value)
			if err != nil {
				return false
			}
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case []any:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n {
			v, err := toYAMLNode(item)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, v)
		}
		return out, nil
	case json.Number:
		tag := "!!float"
		if _, err := n.Int64(); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: n.String()}, nil
	default:
		out := &yaml.Node{}
		if err := out.Encode(n); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func fromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.MappingNode:
		doc := NewDocument()
		for i := 0; i+1 < len(n.Content); i += 2 {
			value, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			doc.Set(n.Content[i].Value, value)
		}
		return doc, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			value, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("gorkson: unsupported yaml node kind %d", n.Kind)
	}
}
