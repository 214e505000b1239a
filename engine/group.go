package engine

import (
	"sort"

	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// GROUPER — Typed records → chart data
// ============================================================================
// Usage:
//
//	data := engine.NewGrouper[Order]().
//	    Key(func(o Order) any { return o.Day }).
//	    Series(func(o Order) string { return o.Channel }).
//	    Measure(func(o Order) float64 { return o.Amount }).
//	    Aggregate(engine.Sum).
//	    Bind(orders)
//
// Bind returns data in the shapes the Normalizer accepts: a list of
// [key, value] pairs when no series accessor is set, otherwise a list of
// {name, data} series. Groups keep first-seen order unless sorted.
// Declare once, bind many times.
// ============================================================================

// Aggregation reduces the measures of one group to a value.
type Aggregation string

const (
	Sum   Aggregation = "sum"
	Count Aggregation = "count"
	Avg   Aggregation = "avg"
	Max   Aggregation = "max"
	Min   Aggregation = "min"
)

// GroupOrder orders the groups of each series.
type GroupOrder int

const (
	// FirstSeen keeps the order keys first appear in the records.
	FirstSeen GroupOrder = iota
	// ByValueDesc puts the largest aggregate first.
	ByValueDesc
	// ByValueAsc puts the smallest aggregate first.
	ByValueAsc
)

// Grouper groups typed records by key and aggregates a measure per group.
type Grouper[T any] struct {
	key     func(T) any
	series  func(T) string
	measure func(T) float64
	where   []func(T) bool
	agg     Aggregation
	order   GroupOrder
	limit   int
}

// NewGrouper creates a grouper for T that sums measures.
func NewGrouper[T any]() *Grouper[T] {
	return &Grouper[T]{agg: Sum}
}

// Key sets the group key accessor. Keys must be comparable.
func (g *Grouper[T]) Key(fn func(T) any) *Grouper[T] {
	g.key = fn
	return g
}

// Series splits records into named series.
func (g *Grouper[T]) Series(fn func(T) string) *Grouper[T] {
	g.series = fn
	return g
}

// Measure sets the measure accessor. Without one every record counts 1.
func (g *Grouper[T]) Measure(fn func(T) float64) *Grouper[T] {
	g.measure = fn
	return g
}

// Where keeps only records matching fn. Predicates are AND-combined.
func (g *Grouper[T]) Where(fn func(T) bool) *Grouper[T] {
	g.where = append(g.where, fn)
	return g
}

// Aggregate sets the aggregation. Unknown aggregations sum.
func (g *Grouper[T]) Aggregate(agg Aggregation) *Grouper[T] {
	g.agg = agg
	return g
}

// Sort sets the group order within each series.
func (g *Grouper[T]) Sort(order GroupOrder) *Grouper[T] {
	g.order = order
	return g
}

// Limit keeps at most n groups per series after sorting. Zero keeps all.
func (g *Grouper[T]) Limit(n int) *Grouper[T] {
	g.limit = n
	return g
}

type group struct {
	key    any
	values []float64
	value  float64
}

type seriesGroups struct {
	name   string
	groups []*group
	index  map[any]*group
}

// Bind groups data. Without a key accessor it returns nil.
func (g *Grouper[T]) Bind(data []T) any {
	if g.key == nil {
		return nil
	}

	var (
		order  []*seriesGroups
		byName = make(map[string]*seriesGroups)
	)
	for _, rec := range data {
		if !g.matches(rec) {
			continue
		}
		name := ""
		if g.series != nil {
			name = g.series(rec)
		}
		sg, ok := byName[name]
		if !ok {
			sg = &seriesGroups{name: name, index: make(map[any]*group)}
			byName[name] = sg
			order = append(order, sg)
		}

		k := g.key(rec)
		grp, ok := sg.index[k]
		if !ok {
			grp = &group{key: k}
			sg.index[k] = grp
			sg.groups = append(sg.groups, grp)
		}
		v := 1.0
		if g.measure != nil {
			v = g.measure(rec)
		}
		grp.values = append(grp.values, v)
	}

	for _, sg := range order {
		for _, grp := range sg.groups {
			grp.value = aggregate(grp.values, g.agg)
		}
		g.sortGroups(sg.groups)
		if g.limit > 0 && len(sg.groups) > g.limit {
			sg.groups = sg.groups[:g.limit]
		}
	}

	if g.series == nil {
		if len(order) == 0 {
			return []any{}
		}
		return pairs(order[0].groups)
	}

	out := make([]any, 0, len(order))
	for _, sg := range order {
		out = append(out, coerce.NewMap("name", sg.name, "data", pairs(sg.groups)))
	}
	return out
}

func (g *Grouper[T]) matches(rec T) bool {
	for _, fn := range g.where {
		if !fn(rec) {
			return false
		}
	}
	return true
}

func (g *Grouper[T]) sortGroups(groups []*group) {
	switch g.order {
	case ByValueDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].value > groups[j].value })
	case ByValueAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].value < groups[j].value })
	}
}

func pairs(groups []*group) []any {
	out := make([]any, len(groups))
	for i, grp := range groups {
		out[i] = []any{grp.key, grp.value}
	}
	return out
}

func aggregate(values []float64, agg Aggregation) float64 {
	if len(values) == 0 {
		return 0
	}
	switch agg {
	case Count:
		return float64(len(values))
	case Avg:
		var total float64
		for _, v := range values {
			total += v
		}
		return total / float64(len(values))
	case Max:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case Min:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	default:
		var total float64
		for _, v := range values {
			total += v
		}
		return total
	}
}
