package soti

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldMap is a string keyed map that remembers insertion order, so a
// decoded body prints its fields in the order the layout declares them.
type FieldMap struct {
	keys   []string
	values map[string]any
}

func NewFieldMap() *FieldMap {
	return &FieldMap{values: make(map[string]any)}
}

// Set adds key at the end, or replaces its value in place.
func (m *FieldMap) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value
}

func (m *FieldMap) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}

	var v, ok = m.values[key]
	return v, ok
}

func (m *FieldMap) Keys() []string {
	if m == nil {
		return nil
	}

	return append([]string(nil), m.keys...)
}

func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// String is "key: value, key: value", for log lines and the console.
func (m *FieldMap) String() string {
	var parts = make([]string, 0, m.Len())

	for _, k := range m.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, formatFieldValue(m.values[k])))
	}

	return strings.Join(parts, ", ")
}

// MarshalYAML keeps the field order.  A body with no fields is written as
// null.
func (m *FieldMap) MarshalYAML() (any, error) {
	if m.Len() == 0 {
		return nil, nil
	}

	var node = &yaml.Node{Kind: yaml.MappingNode}

	for _, k := range m.keys {
		var key = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}

		var value = &yaml.Node{}
		if err := value.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}

		node.Content = append(node.Content, key, value)
	}

	return node, nil
}

func (m *FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		var v = m.values[k]
		if f, ok := v.(float32); ok && (math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)) {
			// JSON has no NaN or Inf.
			v = formatFieldValue(f)
		}

		var key, _ = json.Marshal(k)
		var value, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func formatFieldValue(v any) string {
	switch x := v.(type) {
	case fmt.Stringer:
		return x.String()
	case float32:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
