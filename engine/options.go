package engine

import (
	"math"
	"strconv"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for NewNormalizer()
// ============================================================================

// Option configures normalizer behavior via functional options pattern.
type Option func(*config)

type config struct {
	Weekdays        []string // heatmap y categories for groupBy "weekdays"
	Months          []string // heatmap y categories for groupBy "months"
	Days            []string // heatmap y categories for groupBy "days"
	MaxMarkerPoints int      // line markers are hidden above this many points
}

// Default category names used when no override is given.
var (
	DefaultWeekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	DefaultMonths   = []string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
)

// WithWeekdays replaces the weekday names used as heatmap categories.
func WithWeekdays(names ...string) Option {
	return func(c *config) {
		c.Weekdays = names
	}
}

// WithMonths replaces the month names used as heatmap categories.
func WithMonths(names ...string) Option {
	return func(c *config) {
		c.Months = names
	}
}

// WithDays replaces the day-of-month labels used as heatmap categories.
func WithDays(names ...string) Option {
	return func(c *config) {
		c.Days = names
	}
}

// WithMaxMarkerPoints sets the default line marker limit. Zero or less
// means markers are always drawn.
func WithMaxMarkerPoints(n int) Option {
	return func(c *config) {
		c.MaxMarkerPoints = n
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	days := make([]string, 32)
	for i := range days {
		days[i] = strconv.Itoa(i)
	}
	cfg := &config{
		Weekdays:        append([]string(nil), DefaultWeekdays...),
		Months:          append([]string(nil), DefaultMonths...),
		Days:            days,
		MaxMarkerPoints: math.MaxInt,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxMarkerPoints <= 0 {
		cfg.MaxMarkerPoints = math.MaxInt
	}
	return cfg
}
