package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// VALUE COERCION — Tagged handling of raw chart input
// ============================================================================
// Accepted shapes: nil, bool, Go integers and floats, json.Number, string,
// time.Time, []any (or any slice), *Map, map[string]any. Every helper
// switches over exactly these; anything else is ErrUnsupportedValue.
// ============================================================================

// ErrUnsupportedValue is returned for input shapes outside the accepted set.
var ErrUnsupportedValue = errors.New("unsupported value")

// Canon rewrites v into the canonical shapes: every slice becomes []any,
// map[string]any becomes *Map (sorted keys), and nested values follow.
// Canonical input is returned unchanged.
func Canon(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, json.Number, time.Time,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	case *Map:
		if t == nil {
			return nil, nil
		}
		var err error
		out := NewMap()
		t.Each(func(k string, val any) {
			if err != nil {
				return
			}
			var c any
			c, err = Canon(val)
			out.Set(k, c)
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case map[string]any:
		return Canon(FromGoMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			c, err := Canon(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			c, err := Canon(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		gm := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			gm[iter.Key().String()] = iter.Value().Interface()
		}
		return Canon(gm)
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return Canon(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// ============================================================================
// TEXT
// ============================================================================

// ToText stringifies v with its natural conversion.
func ToText(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t, 64)
	case float32:
		return formatFloat(float64(t), 32)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *Map:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e == nil {
				continue
			}
			parts[i] = ToText(e)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	}
	if c, err := Canon(v); err == nil && !reflect.DeepEqual(c, v) {
		return ToText(c)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// ============================================================================
// NUMBER
// ============================================================================

var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ToNumber converts v to a float. Strings contribute their leading numeric
// prefix ("12px" is 12). Anything without a numeric reading is NaN.
func ToNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		return ToNumber(t.String())
	case string:
		return parseNumericPrefix(t)
	case time.Time:
		return float64(t.UnixMilli())
	case []any:
		// a one-element list reads as its element, like its text form
		if len(t) == 1 {
			return ToNumber(t[0])
		}
		return math.NaN()
	default:
		// nil, bool, *Map, unsupported
		return math.NaN()
	}
}

func parseNumericPrefix(s string) float64 {
	m := numericPrefix.FindString(strings.TrimLeft(s, " \t\n\r\f\v"))
	if m == "" {
		return math.NaN()
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// out of range parses to +-Inf with ErrRange
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}

// ============================================================================
// POINT SEQUENCES
// ============================================================================

// ToPointSequence returns lists unchanged and turns a mapping into
// [key, value] pairs in insertion order.
func ToPointSequence(v any) ([]any, error) {
	c, err := Canon(v)
	if err != nil {
		return nil, err
	}
	switch t := c.(type) {
	case []any:
		return t, nil
	case *Map:
		pairs := make([]any, 0, t.Len())
		t.Each(func(k string, val any) {
			pairs = append(pairs, []any{k, val})
		})
		return pairs, nil
	case nil:
		return []any{}, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %T as points", ErrUnsupportedValue, v)
	}
}
