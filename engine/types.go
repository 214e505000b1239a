package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// CHARTKIT ENGINE TYPES — Canonical chart data
// ============================================================================
// Raw input (lists, keyed mappings, decoded JSON) is normalized into these
// types before any backend sees it. Backends never read raw input.
// ============================================================================

// ChartType names one of the supported chart kinds.
type ChartType string

const (
	LineChart    ChartType = "LineChart"
	PieChart     ChartType = "PieChart"
	ColumnChart  ChartType = "ColumnChart"
	BarChart     ChartType = "BarChart"
	ComboChart   ChartType = "ComboChart"
	AreaChart    ChartType = "AreaChart"
	GeoChart     ChartType = "GeoChart"
	ScatterChart ChartType = "ScatterChart"
	Gauge        ChartType = "Gauge"
	Timeline     ChartType = "Timeline"
	Calendar     ChartType = "Calendar"
	Heatmap      ChartType = "Heatmap"
)

// ChartTypes lists every chart type in a stable order.
var ChartTypes = []ChartType{
	LineChart, PieChart, ColumnChart, BarChart, ComboChart, AreaChart,
	GeoChart, ScatterChart, Gauge, Timeline, Calendar, Heatmap,
}

// Valid reports whether t is a known chart type.
func (t ChartType) Valid() bool {
	for _, c := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}

// ParseChartType accepts "LineChart", "linechart", "line" and similar.
func ParseChartType(s string) (ChartType, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	for _, c := range ChartTypes {
		full := strings.ToLower(string(c))
		if norm == full || norm+"chart" == full {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartType, s)
}

// ============================================================================
// KEYS
// ============================================================================

// KeyType selects how point keys are coerced.
type KeyType string

const (
	KeyString   KeyType = "string"
	KeyNumber   KeyType = "number"
	KeyDateTime KeyType = "datetime"
)

// Key is a coerced point key. Exactly one of Text, Number, Time is
// meaningful, selected by Type.
type Key struct {
	Type   KeyType
	Text   string
	Number float64
	Time   time.Time
}

// StringKey, NumberKey and TimeKey build keys of each type.
func StringKey(s string) Key { return Key{Type: KeyString, Text: s} }
func NumberKey(f float64) Key { return Key{Type: KeyNumber, Number: f} }
func TimeKey(t time.Time) Key { return Key{Type: KeyDateTime, Time: t.UTC()} }

// Value returns the key as string, float64 or time.Time.
func (k Key) Value() any {
	switch k.Type {
	case KeyNumber:
		return k.Number
	case KeyDateTime:
		return k.Time
	default:
		return k.Text
	}
}

// String renders the key. Datetimes use RFC 3339.
func (k Key) String() string {
	return coerce.ToText(k.Value())
}

// Format renders the key, using layout for datetimes when non-empty.
func (k Key) Format(layout string) string {
	if k.Type == KeyDateTime && layout != "" {
		return k.Time.Format(layout)
	}
	if k.Type == KeyDateTime && k.Time.Equal(k.Time.Truncate(24*time.Hour)) {
		return k.Time.Format("2006-01-02")
	}
	return k.String()
}

// ============================================================================
// SERIES
// ============================================================================

// Point is one (key, value) observation.
type Point struct {
	Key   Key
	Value float64
}

// Cell is one heatmap observation at column X, row Y.
type Cell struct {
	X     int
	Y     int
	Value float64
}

// Series is a named, ordered run of points.
type Series struct {
	Name   string
	Points []Point

	// Cells holds heatmap data instead of Points.
	Cells []Cell

	// DataLabels asks the backend to print values on the plot.
	DataLabels bool

	// MaxMarkerPoints overrides the chart-wide marker limit when > 0.
	MaxMarkerPoints int

	// Attrs carries any extra keys given with an explicit series.
	Attrs *coerce.Map
}

// Values returns the point values (or cell values for heatmaps).
func (s Series) Values() []float64 {
	if len(s.Cells) > 0 {
		out := make([]float64, len(s.Cells))
		for i, c := range s.Cells {
			out[i] = c.Value
		}
		return out
	}
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Slice is one labelled value for pie, geo and gauge charts.
type Slice struct {
	Label string
	Value float64
}

// Span is one timeline bar.
type Span struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Day is one calendar entry.
type Day struct {
	Date  time.Time
	Value float64
}

// ============================================================================
// DATASET — Normalized chart input handed to a backend
// ============================================================================

// Dataset is the normalized data for one chart. Which fields are populated
// depends on Type: Series for line/area/column/bar/combo/scatter/heatmap,
// Slices for pie/geo/gauge, Spans for timelines, Days for calendars.
type Dataset struct {
	Type    ChartType
	KeyType KeyType

	Series []Series
	Slices []Slice
	Spans  []Span
	Days   []Day

	// Header is set for table formats that need a header row (gauge).
	Header []string

	// XCategories and YCategories label heatmap axes.
	XCategories []string
	YCategories []string

	// HideLegend is set when the input was a single unnamed series.
	HideLegend bool

	// Dropped counts points whose key or value could not be coerced.
	Dropped int
}

// HasNegative reports whether any series or slice value is below zero.
func (d *Dataset) HasNegative() bool {
	for _, s := range d.Series {
		for _, v := range s.Values() {
			if v < 0 {
				return true
			}
		}
	}
	for _, s := range d.Slices {
		if s.Value < 0 {
			return true
		}
	}
	return false
}

// Extent returns the smallest and largest finite values in the dataset.
// ok is false when there are none.
func (d *Dataset) Extent() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	visit := func(v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	for _, s := range d.Series {
		for _, v := range s.Values() {
			visit(v)
		}
	}
	for _, s := range d.Slices {
		visit(s.Value)
	}
	for _, day := range d.Days {
		visit(day.Value)
	}
	return lo, hi, ok
}

// PointCount returns the number of points in the longest series.
func (d *Dataset) PointCount() int {
	n := 0
	for _, s := range d.Series {
		n = max(n, len(s.Points), len(s.Cells))
	}
	return n
}
