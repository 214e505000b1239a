package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// CHART OPTIONS — Typed view of the user's option mapping
// ============================================================================

// Heatmap grouping modes.
const (
	GroupByWeekdays = "weekdays"
	GroupByMonths   = "months"
	GroupByDays     = "days"
)

// Options is the parsed form of a chart's option mapping. Presence matters
// for Min and Max, so they are pointers.
type Options struct {
	Min        *float64
	Max        *float64
	Stacked    bool
	Discrete   bool
	Colors     []string
	DateFormat string
	XTitle     string
	YTitle     string
	GroupBy    string
	Types      []string
	Adapter    string
	Refresh    time.Duration

	MaxMarkerPoints int
	XCategories     []string
	YCategories     []string
	ValueLabel      string
	Money           bool
	Percentage      bool

	// Library is merged over the computed backend options last.
	Library *coerce.Map

	// Raw is the mapping the options were parsed from.
	Raw *coerce.Map
}

// ParseOptions reads the recognized keys out of raw. Unknown keys are kept
// in Raw and otherwise ignored.
func ParseOptions(raw *coerce.Map) (Options, error) {
	canon, err := coerce.Canon(raw)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	raw, _ = canon.(*coerce.Map)
	o := Options{Raw: raw.Clone()}
	var errs []error
	fail := func(key string, v any, want string) {
		errs = append(errs, fmt.Errorf("%w: %s must be %s, got %T", ErrInvalidOption, key, want, v))
	}

	raw.Each(func(key string, v any) {
		switch key {
		case "min", "max":
			if v == nil {
				return
			}
			f := coerce.ToNumber(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				fail(key, v, "a finite number")
				return
			}
			if key == "min" {
				o.Min = &f
			} else {
				o.Max = &f
			}
		case "stacked":
			o.Stacked = truthy(v)
		case "discrete":
			o.Discrete = truthy(v)
		case "money":
			o.Money = truthy(v)
		case "percentage":
			o.Percentage = truthy(v)
		case "colors":
			list, ok := textList(v)
			if !ok {
				fail(key, v, "a list")
				return
			}
			o.Colors = list
		case "types":
			list, ok := textList(v)
			if !ok {
				fail(key, v, "a list")
				return
			}
			o.Types = list
		case "xcategories":
			list, ok := textList(v)
			if !ok {
				fail(key, v, "a list")
				return
			}
			o.XCategories = list
		case "ycategories":
			list, ok := textList(v)
			if !ok {
				fail(key, v, "a list")
				return
			}
			o.YCategories = list
		case "dateFormat":
			o.DateFormat = optText(v)
		case "xtitle":
			o.XTitle = optText(v)
		case "ytitle":
			o.YTitle = optText(v)
		case "adapter":
			o.Adapter = optText(v)
		case "valueLabel":
			o.ValueLabel = optText(v)
		case "groupBy":
			g := optText(v)
			switch g {
			case "", GroupByWeekdays, GroupByMonths, GroupByDays:
				o.GroupBy = g
			default:
				errs = append(errs, fmt.Errorf("%w: groupBy must be weekdays, months or days, got %q", ErrInvalidOption, g))
			}
		case "refresh":
			d, err := ParseRefresh(v)
			if err != nil {
				errs = append(errs, err)
				return
			}
			o.Refresh = d
		case "maxMarkerPoints":
			f := coerce.ToNumber(v)
			if math.IsNaN(f) {
				fail(key, v, "a number")
				return
			}
			o.MaxMarkerPoints = clampInt(f)
		case "library":
			if v == nil {
				return
			}
			m, ok := v.(*coerce.Map)
			if !ok {
				fail(key, v, "a mapping")
				return
			}
			o.Library = m.Clone()
		}
	})

	if len(errs) > 0 {
		return o, errors.Join(errs...)
	}
	return o, nil
}

// ParseRefresh reads a refresh interval. Numbers are seconds; strings are
// Go durations ("30s", "5m") or plain numbers of seconds.
func ParseRefresh(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if !t {
			return 0, nil
		}
	case string:
		if t == "" {
			return 0, nil
		}
		if d, err := time.ParseDuration(t); err == nil {
			return positive(d)
		}
	case time.Duration:
		return positive(t)
	}
	f := coerce.ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: refresh must be a number of seconds or a duration, got %v", ErrInvalidOption, v)
	}
	return positive(time.Duration(f * float64(time.Second)))
}

func positive(d time.Duration) (time.Duration, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: refresh must not be negative, got %s", ErrInvalidOption, d)
	}
	return d, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	default:
		f := coerce.ToNumber(v)
		return !math.IsNaN(f) && f != 0
	}
}

func optText(v any) string {
	if v == nil {
		return ""
	}
	return coerce.ToText(v)
}

func textList(v any) ([]string, bool) {
	if v == nil {
		return nil, true
	}
	c, err := coerce.Canon(v)
	if err != nil {
		return nil, false
	}
	list, ok := c.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = coerce.ToText(e)
	}
	return out, true
}

func clampInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= 0:
		return 0
	}
	return int(f)
}
