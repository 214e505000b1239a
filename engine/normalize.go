package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// NORMALIZER — Raw input → Dataset, per chart type
// ============================================================================
// Points whose key or value cannot be coerced are dropped and counted in
// Dataset.Dropped. Input that does not have a point shape at all (a scalar
// where a list was expected, a point that is not a list) is an error.
// ============================================================================

// Normalizer turns raw chart input into a Dataset.
type Normalizer struct {
	cfg *config
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	return &Normalizer{cfg: applyOptions(opts)}
}

// Weekdays returns the configured weekday category names.
func (n *Normalizer) Weekdays() []string { return append([]string(nil), n.cfg.Weekdays...) }

// Months returns the configured month category names.
func (n *Normalizer) Months() []string { return append([]string(nil), n.cfg.Months...) }

// Days returns the configured day-of-month category names.
func (n *Normalizer) Days() []string { return append([]string(nil), n.cfg.Days...) }

// MaxMarkerPoints returns the default line marker limit.
func (n *Normalizer) MaxMarkerPoints() int { return n.cfg.MaxMarkerPoints }

// KeyTypeFor returns the key type a chart type's points are coerced to.
func KeyTypeFor(t ChartType, opts Options) KeyType {
	if opts.Discrete {
		return KeyString
	}
	switch t {
	case LineChart, AreaChart:
		return KeyDateTime
	case ScatterChart:
		return KeyNumber
	default:
		return KeyString
	}
}

// Normalize routes raw input through the path for chart type t.
func (n *Normalizer) Normalize(t ChartType, raw any, opts Options) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch t {
	case LineChart, AreaChart, ColumnChart, BarChart, ComboChart, ScatterChart:
		ds, err = ProcessSeries(raw, KeyTypeFor(t, opts))
	case PieChart, GeoChart:
		ds, err = ReduceToSimplePairs(raw, false)
	case Gauge:
		ds, err = ReduceToSimplePairs(raw, true)
	case Heatmap:
		ds, err = n.NormalizeHeatmap(raw, opts)
	case Timeline:
		ds, err = NormalizeTimeline(raw)
	case Calendar:
		ds, err = NormalizeCalendar(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChartType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", t, err)
	}
	ds.Type = t
	return ds, nil
}

// ============================================================================
// SERIES SHAPE
// ============================================================================

// RawSeries is a series before its points are coerced.
type RawSeries struct {
	Name  string
	Data  any
	Attrs *coerce.Map
}

// NormalizeSeriesShape decides whether raw is a list of series objects or
// a single bare series. A bare point list or keyed mapping is wrapped as
// one series named "Value" and hideLegend is true; an explicit series list
// keeps its names and hideLegend is false.
func NormalizeSeriesShape(raw any) (series []RawSeries, hideLegend bool, err error) {
	c, err := coerce.Canon(raw)
	if err != nil {
		return nil, false, err
	}

	list, isList := c.([]any)
	if !isList || len(list) == 0 {
		return []RawSeries{{Name: "Value", Data: c}}, true, nil
	}
	if _, ok := list[0].(*coerce.Map); !ok {
		return []RawSeries{{Name: "Value", Data: c}}, true, nil
	}

	series = make([]RawSeries, 0, len(list))
	for i, e := range list {
		m, ok := e.(*coerce.Map)
		if !ok {
			return nil, false, fmt.Errorf("%w: element %d is %T, want a series object", ErrMalformedSeries, i, e)
		}
		rs := RawSeries{Data: m.Get("data"), Attrs: NewAttrs(m)}
		if name, ok := m.Lookup("name"); ok && name != nil {
			rs.Name = coerce.ToText(name)
		}
		series = append(series, rs)
	}
	return series, false, nil
}

// NewAttrs copies every key of a series object except name and data.
func NewAttrs(m *coerce.Map) *coerce.Map {
	attrs := coerce.NewMap()
	m.Each(func(k string, v any) {
		if k == "name" || k == "data" {
			return
		}
		attrs.Set(k, v)
	})
	return attrs
}

// ============================================================================
// POINTS
// ============================================================================

// FormatKey coerces a raw key. ok is false when the key has no reading of
// the requested type.
func FormatKey(raw any, kt KeyType) (Key, bool) {
	switch kt {
	case KeyNumber:
		f := coerce.ToNumber(raw)
		if math.IsNaN(f) {
			return Key{}, false
		}
		return NumberKey(f), true
	case KeyDateTime:
		t, ok := coerce.ToDateTime(raw)
		if !ok {
			return Key{}, false
		}
		return TimeKey(t), true
	default:
		return StringKey(coerce.ToText(raw)), true
	}
}

// FormatSeriesPoints coerces every [key, value] point of data. Datetime
// keyed points are stable-sorted by time; other key types keep input order.
func FormatSeriesPoints(data any, kt KeyType) (points []Point, dropped int, err error) {
	pairs, err := coerce.ToPointSequence(data)
	if err != nil {
		return nil, 0, err
	}

	points = make([]Point, 0, len(pairs))
	for i, p := range pairs {
		row, ok := p.([]any)
		if !ok || len(row) < 2 {
			return nil, 0, fmt.Errorf("%w: point %d is %s", ErrMalformedPoint, i, describe(p))
		}
		key, ok := FormatKey(row[0], kt)
		value := coerce.ToNumber(row[1])
		if !ok || math.IsNaN(value) {
			dropped++
			continue
		}
		points = append(points, Point{Key: key, Value: value})
	}

	if kt == KeyDateTime {
		sort.SliceStable(points, func(a, b int) bool {
			return points[a].Key.Time.Before(points[b].Key.Time)
		})
	}
	return points, dropped, nil
}

// ProcessSeries shapes raw into series and coerces their points.
func ProcessSeries(raw any, kt KeyType) (*Dataset, error) {
	shaped, hide, err := NormalizeSeriesShape(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{KeyType: kt, HideLegend: hide, Series: make([]Series, 0, len(shaped))}
	for i, rs := range shaped {
		points, dropped, err := FormatSeriesPoints(rs.Data, kt)
		if err != nil {
			return nil, fmt.Errorf("series %d (%s): %w", i, rs.Name, err)
		}
		ds.Dropped += dropped
		ds.Series = append(ds.Series, Series{
			Name:            rs.Name,
			Points:          points,
			MaxMarkerPoints: seriesMarkerLimit(rs.Attrs),
			Attrs:           rs.Attrs,
		})
	}
	return ds, nil
}

func seriesMarkerLimit(attrs *coerce.Map) int {
	v, ok := attrs.Lookup("maxMarkerPoints")
	if !ok {
		return 0
	}
	f := coerce.ToNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	return clampInt(f)
}

// ============================================================================
// SIMPLE PAIRS — pie, geo, gauge
// ============================================================================

// ReduceToSimplePairs coerces a bare point list or mapping to labelled
// values. With header set the dataset carries a ["Label", "Value"] header.
func ReduceToSimplePairs(raw any, header bool) (*Dataset, error) {
	pairs, err := coerce.ToPointSequence(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{KeyType: KeyString, Slices: make([]Slice, 0, len(pairs))}
	for i, p := range pairs {
		row, ok := p.([]any)
		if !ok || len(row) < 2 {
			return nil, fmt.Errorf("%w: point %d is %s", ErrMalformedPoint, i, describe(p))
		}
		value := coerce.ToNumber(row[1])
		if math.IsNaN(value) {
			ds.Dropped++
			continue
		}
		ds.Slices = append(ds.Slices, Slice{Label: coerce.ToText(row[0]), Value: value})
	}
	if header {
		ds.Header = []string{"Label", "Value"}
	}
	return ds, nil
}

// ============================================================================
// HEATMAP
// ============================================================================

// NormalizeHeatmap re-keys points to cells. With opts.GroupBy set each
// [date, value] point of series i becomes Cell{X: i, Y: category, Value},
// where the category is the weekday number (Sunday = 0), the month index
// (0-11) or the day of month (1-31). Without GroupBy points must already be
// [x, y, value] triples.
func (n *Normalizer) NormalizeHeatmap(raw any, opts Options) (*Dataset, error) {
	shaped, hide, err := NormalizeSeriesShape(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{KeyType: KeyNumber, HideLegend: hide, Series: make([]Series, 0, len(shaped))}
	for i, rs := range shaped {
		pairs, err := coerce.ToPointSequence(rs.Data)
		if err != nil {
			return nil, fmt.Errorf("series %d (%s): %w", i, rs.Name, err)
		}

		s := Series{Name: rs.Name, DataLabels: true, Attrs: rs.Attrs, Cells: make([]Cell, 0, len(pairs))}
		for j, p := range pairs {
			row, ok := p.([]any)
			if !ok || len(row) < 2 || (opts.GroupBy == "" && len(row) < 3) {
				return nil, fmt.Errorf("series %d (%s): %w: point %d is %s", i, rs.Name, ErrMalformedPoint, j, describe(p))
			}
			cell, ok := heatmapCell(i, row, opts.GroupBy)
			if !ok {
				ds.Dropped++
				continue
			}
			s.Cells = append(s.Cells, cell)
		}
		ds.Series = append(ds.Series, s)
	}

	ds.YCategories = opts.YCategories
	if ds.YCategories == nil {
		ds.YCategories = n.categoriesFor(opts.GroupBy)
	}
	ds.XCategories = opts.XCategories
	if ds.XCategories == nil {
		ds.XCategories = make([]string, len(ds.Series))
		for i, s := range ds.Series {
			ds.XCategories[i] = s.Name
		}
	}
	return ds, nil
}

func heatmapCell(series int, row []any, groupBy string) (Cell, bool) {
	if groupBy == "" {
		x, y, v := coerce.ToNumber(row[0]), coerce.ToNumber(row[1]), coerce.ToNumber(row[2])
		if !isIndex(x) || !isIndex(y) || math.IsNaN(v) {
			return Cell{}, false
		}
		return Cell{X: int(x), Y: int(y), Value: v}, true
	}

	t, ok := coerce.ToDateTime(row[0])
	v := coerce.ToNumber(row[1])
	if !ok || math.IsNaN(v) {
		return Cell{}, false
	}
	return Cell{X: series, Y: GroupIndex(t, groupBy), Value: v}, true
}

// isIndex reports whether f is a whole number usable as a cell position.
func isIndex(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}

// GroupIndex returns the category index of t for a grouping mode.
func GroupIndex(t time.Time, groupBy string) int {
	switch groupBy {
	case GroupByWeekdays:
		return int(t.Weekday())
	case GroupByMonths:
		return int(t.Month()) - 1
	case GroupByDays:
		return t.Day()
	}
	return 0
}

func (n *Normalizer) categoriesFor(groupBy string) []string {
	switch groupBy {
	case GroupByWeekdays:
		return n.Weekdays()
	case GroupByMonths:
		return n.Months()
	case GroupByDays:
		return n.Days()
	}
	return nil
}

// ============================================================================
// TIMELINE & CALENDAR
// ============================================================================

// NormalizeTimeline reads [name, start, end] rows.
func NormalizeTimeline(raw any) (*Dataset, error) {
	rows, err := coerce.ToPointSequence(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{KeyType: KeyDateTime, Spans: make([]Span, 0, len(rows))}
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) < 3 {
			return nil, fmt.Errorf("%w: row %d is %s, want [name, start, end]", ErrMalformedPoint, i, describe(r))
		}
		start, okStart := coerce.ToDateTime(row[1])
		end, okEnd := coerce.ToDateTime(row[2])
		if !okStart || !okEnd {
			ds.Dropped++
			continue
		}
		ds.Spans = append(ds.Spans, Span{Name: coerce.ToText(row[0]), Start: start, End: end})
	}
	return ds, nil
}

// NormalizeCalendar reads [date, value] rows.
func NormalizeCalendar(raw any) (*Dataset, error) {
	rows, err := coerce.ToPointSequence(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{KeyType: KeyDateTime, Days: make([]Day, 0, len(rows))}
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) < 2 {
			return nil, fmt.Errorf("%w: row %d is %s, want [date, value]", ErrMalformedPoint, i, describe(r))
		}
		date, ok := coerce.ToDateTime(row[0])
		value := coerce.ToNumber(row[1])
		if !ok || math.IsNaN(value) {
			ds.Dropped++
			continue
		}
		ds.Days = append(ds.Days, Day{Date: date, Value: value})
	}
	return ds, nil
}

func describe(v any) string {
	if list, ok := v.([]any); ok {
		return fmt.Sprintf("a list of %d", len(list))
	}
	return fmt.Sprintf("%T", v)
}
