package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// DECODING — JSON and YAML into ordered values
// ============================================================================
// Objects become *Map, arrays []any, numbers float64. encoding/json's
// map[string]any loses key order, which is the order points are drawn in
// for string-keyed charts, so objects are walked token by token.
// ============================================================================

// DecodeJSON reads one JSON value from r.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f, nil
		}
		return t, nil
	default:
		// string, bool, nil
		return t, nil
	}
}

// FromYAML converts a decoded YAML node into ordered values.
func FromYAML(node *yaml.Node) (any, error) {
	if node == nil {
		return nil, nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return FromYAML(node.Content[0])
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: mapping key: %w", node.Content[i].Line, err)
			}
			val, err := FromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			val, err := FromYAML(child)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.ScalarNode:
		// Timestamps stay text; only datetime charts read them as times.
		switch node.ShortTag() {
		case "!!int", "!!float", "!!bool", "!!null":
		default:
			return node.Value, nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

// UnmarshalYAML decodes a YAML mapping keeping key order at every depth.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	v, err := FromYAML(node)
	if err != nil {
		return err
	}
	if v == nil {
		*m = *NewMap()
		return nil
	}
	decoded, ok := v.(*Map)
	if !ok {
		return fmt.Errorf("%w: line %d: expected mapping", ErrUnsupportedValue, node.Line)
	}
	*m = *decoded
	return nil
}

// MarshalYAML emits the keys in insertion order.
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	var err error
	m.Each(func(k string, v any) {
		if err != nil {
			return
		}
		var val yaml.Node
		if e := val.Encode(v); e != nil {
			err = fmt.Errorf("key %q: %w", k, e)
			return
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}
