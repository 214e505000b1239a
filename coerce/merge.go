package coerce

// ============================================================================
// DEEP MERGE
// ============================================================================
// Maps merge key by key, lists element by element, everything else is
// replaced by the right-hand value. A key missing from the right-hand side
// leaves the left value alone; a key present with a nil value overwrites.
// Neither input is modified.
// ============================================================================

// DeepMerge returns a merged copy of a and b with b taking precedence.
func DeepMerge(a, b any) any {
	switch bt := b.(type) {
	case *Map:
		var out *Map
		if at, ok := a.(*Map); ok && at != nil {
			out = at.Clone()
		} else {
			out = NewMap()
		}
		bt.Each(func(k string, v any) {
			if existing, ok := out.Lookup(k); ok {
				out.Set(k, DeepMerge(existing, v))
				return
			}
			out.Set(k, DeepMerge(nil, v))
		})
		return out
	case []any:
		var base []any
		if at, ok := a.([]any); ok {
			base = at
		}
		n := max(len(base), len(bt))
		out := make([]any, n)
		for i := range n {
			switch {
			case i < len(bt) && i < len(base):
				out[i] = DeepMerge(base[i], bt[i])
			case i < len(bt):
				out[i] = DeepMerge(nil, bt[i])
			default:
				out[i] = cloneValue(base[i])
			}
		}
		return out
	default:
		return b
	}
}

// Merge folds every map onto an empty map from left to right.
func Merge(maps ...*Map) *Map {
	out := NewMap()
	for _, m := range maps {
		if m == nil {
			continue
		}
		out = DeepMerge(out, m).(*Map)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		if t == nil {
			return t
		}
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
