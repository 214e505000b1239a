package engine

import (
	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// CANONICALIZER — User options → backend option tree
// ============================================================================
// Each backend describes where the shared options land in its own option
// tree through these hooks. A nil hook means the backend has no place for
// that option.
// ============================================================================

// Canonicalizer builds a backend's option tree from canonical options.
type Canonicalizer struct {
	Defaults *coerce.Map

	HideLegend func(o *coerce.Map)
	SetMin     func(o *coerce.Map, v float64)
	SetMax     func(o *coerce.Map, v float64)
	SetStacked func(o *coerce.Map)
	SetXTitle  func(o *coerce.Map, title string)
	SetYTitle  func(o *coerce.Map, title string)
}

// WithAxisHooks returns a copy of c with min/max hooks replaced, for
// backends that put the value axis elsewhere on some chart types.
func (c Canonicalizer) WithAxisHooks(setMin, setMax func(o *coerce.Map, v float64)) Canonicalizer {
	c.SetMin = setMin
	c.SetMax = setMax
	return c
}

// Build resolves options for a series chart. Steps, in order: defaults
// merged with overrides; hide legend for single unnamed series; min (the
// explicit value, else 0 unless a value is negative); max; stacking;
// colors and dateFormat; axis titles; the library mapping merged last.
// None of the inputs are modified.
func (c Canonicalizer) Build(data *Dataset, opts Options, overrides *coerce.Map) *coerce.Map {
	out := coerce.Merge(c.Defaults, overrides)

	if data != nil && data.HideLegend && c.HideLegend != nil {
		c.HideLegend(out)
	}

	if opts.Min != nil {
		if c.SetMin != nil {
			c.SetMin(out, *opts.Min)
		}
	} else if (data == nil || !data.HasNegative()) && c.SetMin != nil {
		c.SetMin(out, 0)
	}

	if opts.Max != nil && c.SetMax != nil {
		c.SetMax(out, *opts.Max)
	}

	if opts.Stacked && c.SetStacked != nil {
		c.SetStacked(out)
	}

	if opts.Colors != nil {
		colors := make([]any, len(opts.Colors))
		for i, col := range opts.Colors {
			colors[i] = col
		}
		out.Set("colors", colors)
	}
	if opts.DateFormat != "" {
		out.Set("dateFormat", opts.DateFormat)
	}

	if opts.XTitle != "" && c.SetXTitle != nil {
		c.SetXTitle(out, opts.XTitle)
	}
	if opts.YTitle != "" && c.SetYTitle != nil {
		c.SetYTitle(out, opts.YTitle)
	}

	return out.Merge(opts.Library)
}

// Simple resolves options for charts without axes (pie, geo, gauge,
// timeline, calendar): defaults, overrides, then library.
func (c Canonicalizer) Simple(opts Options, overrides *coerce.Map) *coerce.Map {
	return coerce.Merge(c.Defaults, overrides, opts.Library)
}
