package coerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// MAP — Insertion-ordered option and data mapping
// ============================================================================
// Chart data keyed by label ({"2021-01-01": 5, "2021-01-02": 3}) must keep
// the order it was written in, so decoded JSON/YAML objects land here instead
// of in a Go map.
// ============================================================================

// Map is a string-keyed mapping that remembers insertion order.
// The zero value is not usable; use NewMap. A nil *Map reads as empty.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap builds a Map from alternating key/value arguments.
//
//	coerce.NewMap("min", 0, "library", coerce.NewMap("curveType", "none"))
func NewMap(kv ...any) *Map {
	m := &Map{values: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(ToText(kv[i]), kv[i+1])
	}
	return m
}

// FromGoMap converts a Go map into a Map with keys in sorted order.
func FromGoMap(in map[string]any) *Map {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := NewMap()
	for _, k := range keys {
		m.Set(k, in[k])
	}
	return m
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Has reports whether key is present, even when its value is nil.
func (m *Map) Has(key string) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Lookup returns the value stored under key.
func (m *Map) Lookup(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Get returns the value stored under key, or nil.
func (m *Map) Get(key string) any {
	v, _ := m.Lookup(key)
	return v
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (m *Map) Set(key string, value any) *Map {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Each calls fn for every entry in insertion order.
func (m *Map) Each(fn func(key string, value any)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// Path follows nested maps and returns the value at the end of keys.
func (m *Map) Path(keys ...string) (any, bool) {
	var cur any = m
	for _, k := range keys {
		next, ok := cur.(*Map)
		if !ok || next == nil {
			return nil, false
		}
		cur, ok = next.Lookup(k)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath stores value at the nested location named by keys, creating
// intermediate maps and replacing non-map values on the way.
func (m *Map) SetPath(value any, keys ...string) *Map {
	if len(keys) == 0 {
		return m
	}
	cur := m
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur.Get(k).(*Map)
		if !ok || next == nil {
			next = NewMap()
			cur.Set(k, next)
		}
		cur = next
	}
	cur.Set(keys[len(keys)-1], value)
	return m
}

// Sub returns the nested map stored under key, creating it when absent.
func (m *Map) Sub(key string) *Map {
	if next, ok := m.Get(key).(*Map); ok && next != nil {
		return next
	}
	next := NewMap()
	m.Set(key, next)
	return next
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	if m == nil {
		return NewMap()
	}
	out := &Map{keys: make([]string, len(m.keys)), values: make(map[string]any, len(m.values))}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

// Merge deep-merges other onto a copy of m and returns the copy.
func (m *Map) Merge(other *Map) *Map {
	return DeepMerge(m, other).(*Map)
}

// String renders the map as JSON.
func (m *Map) String() string {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("<map: %v>", err)
	}
	return string(b)
}

// ============================================================================
// JSON
// ============================================================================

// MarshalJSON writes keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := json.Marshal(m.values[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order at every depth.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	decoded, ok := v.(*Map)
	if !ok {
		return fmt.Errorf("%w: expected JSON object, got %T", ErrUnsupportedValue, v)
	}
	*m = *decoded
	return nil
}

// GoString keeps test failure output readable.
func (m *Map) GoString() string {
	if m == nil {
		return "coerce.Map(nil)"
	}
	parts := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		parts = append(parts, fmt.Sprintf("%q: %#v", k, m.values[k]))
	}
	return "coerce.Map{" + strings.Join(parts, ", ") + "}"
}
