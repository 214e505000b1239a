package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// SERIES SHAPE
// ============================================================================

func TestNormalizeSeriesShapeWrapsBareInput(t *testing.T) {
	t.Parallel()

	inputs := map[string]any{
		"point list":   []any{[]any{"a", 1}, []any{"b", 2}},
		"keyed map":    coerce.NewMap("2021-01-01", 5, "2021-01-02", 3),
		"go map":       map[string]any{"x": 1},
		"typed points": [][]any{{"a", 1}},
		"empty list":   []any{},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			series, hide, err := NormalizeSeriesShape(in)
			require.NoError(t, err)
			require.Len(t, series, 1)
			assert.Equal(t, "Value", series[0].Name)
			assert.True(t, hide)
		})
	}
}

func TestNormalizeSeriesShapeKeepsExplicitSeries(t *testing.T) {
	t.Parallel()

	in := []any{
		coerce.NewMap("name", "Workout", "data", coerce.NewMap("2021-01-01", 3)),
		coerce.NewMap("name", "Call parents", "data", coerce.NewMap("2021-01-01", 5), "color", "#f00"),
		map[string]any{"name": "Sleep", "data": []any{}},
	}
	series, hide, err := NormalizeSeriesShape(in)
	require.NoError(t, err)
	assert.False(t, hide)
	require.Len(t, series, 3)
	assert.Equal(t, "Workout", series[0].Name)
	assert.Equal(t, "Call parents", series[1].Name)
	assert.Equal(t, "Sleep", series[2].Name)
	assert.Equal(t, "#f00", series[1].Attrs.Get("color"))
	assert.Equal(t, 0, series[0].Attrs.Len())
}

func TestNormalizeSeriesShapeRejectsMixedList(t *testing.T) {
	t.Parallel()

	_, _, err := NormalizeSeriesShape([]any{coerce.NewMap("name", "a"), []any{"b", 1}})
	assert.ErrorIs(t, err, ErrMalformedSeries)
}

// ============================================================================
// POINTS
// ============================================================================

func TestFormatSeriesPointsSortsDatetimes(t *testing.T) {
	t.Parallel()

	data := []any{
		[]any{"2021-01-03", 1},
		[]any{"2021-01-01", 2},
		[]any{1609545600, 3}, // 2021-01-02
		[]any{"2021-01-01T00:00:00Z", 4},
	}
	points, dropped, err := FormatSeriesPoints(data, KeyDateTime)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, points, 4)

	for i := 1; i < len(points); i++ {
		assert.False(t, points[i].Key.Time.Before(points[i-1].Key.Time), "point %d out of order", i)
	}
	// stable: equal timestamps keep input order
	assert.Equal(t, 2.0, points[0].Value)
	assert.Equal(t, 4.0, points[1].Value)
	assert.Equal(t, 3.0, points[2].Value)
	assert.Equal(t, KeyDateTime, points[0].Key.Type)
}

func TestFormatSeriesPointsKeepsOrderForStringAndNumberKeys(t *testing.T) {
	t.Parallel()

	points, _, err := FormatSeriesPoints([]any{[]any{"b", 1}, []any{"a", 2}}, KeyString)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{Key: StringKey("b"), Value: 1},
		{Key: StringKey("a"), Value: 2},
	}, points)

	points, _, err = FormatSeriesPoints([]any{[]any{"10", 1}, []any{2, "2.5"}}, KeyNumber)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{Key: NumberKey(10), Value: 1},
		{Key: NumberKey(2), Value: 2.5},
	}, points)
}

func TestFormatSeriesPointsDropsUncoercible(t *testing.T) {
	t.Parallel()

	data := []any{
		[]any{"2021-01-01", 1},
		[]any{"not a date", 2},
		[]any{"2021-01-02", "n/a"},
		[]any{"2021-01-03", nil},
	}
	points, dropped, err := FormatSeriesPoints(data, KeyDateTime)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, 3, dropped)
}

func TestFormatSeriesPointsRejectsMalformedPoints(t *testing.T) {
	t.Parallel()

	_, _, err := FormatSeriesPoints([]any{[]any{"a"}}, KeyString)
	assert.ErrorIs(t, err, ErrMalformedPoint)

	_, _, err = FormatSeriesPoints([]any{5}, KeyString)
	assert.ErrorIs(t, err, ErrMalformedPoint)

	_, _, err = FormatSeriesPoints(42, KeyString)
	assert.ErrorIs(t, err, coerce.ErrUnsupportedValue)
}

// ============================================================================
// PER-TYPE ENTRY POINTS
// ============================================================================

func TestNormalizeLineChartFromMapping(t *testing.T) {
	t.Parallel()

	n := NewNormalizer()
	ds, err := n.Normalize(LineChart, coerce.NewMap("2021-01-02", 3, "2021-01-01", 5), Options{})
	require.NoError(t, err)

	assert.Equal(t, LineChart, ds.Type)
	assert.Equal(t, KeyDateTime, ds.KeyType)
	assert.True(t, ds.HideLegend)
	require.Len(t, ds.Series, 1)
	s := ds.Series[0]
	assert.Equal(t, "Value", s.Name)
	require.Len(t, s.Points, 2)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), s.Points[0].Key.Time)
	assert.Equal(t, 5.0, s.Points[0].Value)
	assert.Equal(t, 3.0, s.Points[1].Value)
}

func TestNormalizeKeyTypes(t *testing.T) {
	t.Parallel()

	n := NewNormalizer()
	tests := []struct {
		chart ChartType
		opts  Options
		want  KeyType
	}{
		{LineChart, Options{}, KeyDateTime},
		{AreaChart, Options{}, KeyDateTime},
		{LineChart, Options{Discrete: true}, KeyString},
		{ColumnChart, Options{}, KeyString},
		{BarChart, Options{}, KeyString},
		{ComboChart, Options{}, KeyString},
		{ScatterChart, Options{}, KeyNumber},
	}
	for _, tt := range tests {
		ds, err := n.Normalize(tt.chart, []any{[]any{"1", 1}}, tt.opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ds.KeyType, "%s discrete=%v", tt.chart, tt.opts.Discrete)
	}
}

func TestNormalizeDiscreteKeepsOrder(t *testing.T) {
	t.Parallel()

	ds, err := NewNormalizer().Normalize(LineChart, []any{[]any{"2021-01-02", 1}, []any{"2021-01-01", 2}}, Options{Discrete: true})
	require.NoError(t, err)
	assert.Equal(t, "2021-01-02", ds.Series[0].Points[0].Key.Text)
}

func TestReduceToSimplePairs(t *testing.T) {
	t.Parallel()

	ds, err := ReduceToSimplePairs(coerce.NewMap("Blueberry", 44, "Strawberry", "23"), false)
	require.NoError(t, err)
	assert.Equal(t, []Slice{{"Blueberry", 44}, {"Strawberry", 23}}, ds.Slices)
	assert.Nil(t, ds.Header)

	ds, err = NewNormalizer().Normalize(Gauge, []any{[]any{"Memory", 80}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Label", "Value"}, ds.Header)
	assert.Equal(t, []Slice{{"Memory", 80}}, ds.Slices)

	ds, err = NewNormalizer().Normalize(PieChart, []any{[]any{1, 2}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1", ds.Slices[0].Label)
}

func TestNormalizeHeatmapWeekdays(t *testing.T) {
	t.Parallel()

	n := NewNormalizer()
	data := []any{
		[]any{"2021-01-03", 1}, // Sunday
		[]any{"2021-01-04", 2}, // Monday
		[]any{"2021-01-09", 3}, // Saturday
	}
	ds, err := n.Normalize(Heatmap, data, Options{GroupBy: GroupByWeekdays})
	require.NoError(t, err)

	require.Len(t, ds.Series, 1)
	s := ds.Series[0]
	assert.True(t, s.DataLabels)
	assert.Equal(t, []Cell{{0, 0, 1}, {0, 1, 2}, {0, 6, 3}}, s.Cells)
	assert.Equal(t, n.Weekdays(), ds.YCategories)
	assert.Equal(t, []string{"Value"}, ds.XCategories)
}

func TestNormalizeHeatmapGroupings(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(WithMonths("J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"))
	series := []any{
		coerce.NewMap("name", "a", "data", []any{[]any{"2021-03-15", 1}}),
		coerce.NewMap("name", "b", "data", []any{[]any{"2021-12-31", 2}}),
	}

	ds, err := n.Normalize(Heatmap, series, Options{GroupBy: GroupByMonths})
	require.NoError(t, err)
	assert.Equal(t, []Cell{{0, 2, 1}}, ds.Series[0].Cells)
	assert.Equal(t, []Cell{{1, 11, 2}}, ds.Series[1].Cells)
	assert.Equal(t, "D", ds.YCategories[11])
	assert.Equal(t, []string{"a", "b"}, ds.XCategories)

	ds, err = n.Normalize(Heatmap, series, Options{GroupBy: GroupByDays})
	require.NoError(t, err)
	assert.Equal(t, 15, ds.Series[0].Cells[0].Y)
	assert.Equal(t, 31, ds.Series[1].Cells[0].Y)
	assert.Len(t, ds.YCategories, 32)
}

func TestNormalizeHeatmapWithoutGrouping(t *testing.T) {
	t.Parallel()

	ds, err := NewNormalizer().Normalize(Heatmap, []any{[]any{0, 1, 5}, []any{2, 3, 7}}, Options{
		YCategories: []string{"low", "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Cell{{0, 1, 5}, {2, 3, 7}}, ds.Series[0].Cells)
	assert.True(t, ds.Series[0].DataLabels)
	assert.Equal(t, []string{"low", "high"}, ds.YCategories)

	_, err = NewNormalizer().Normalize(Heatmap, []any{[]any{0, 1}}, Options{})
	assert.ErrorIs(t, err, ErrMalformedPoint)

	ds, err = NewNormalizer().Normalize(Heatmap, []any{
		[]any{1.5, 0, 4},
		[]any{0, "2.9", 4},
		[]any{"1e999", 0, 4},
		[]any{"1", 2.0, 4},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []Cell{{1, 2, 4}}, ds.Series[0].Cells, "fractional and infinite positions are dropped")
	assert.Equal(t, 3, ds.Dropped)
}

func TestNormalizeTimelineAndCalendar(t *testing.T) {
	t.Parallel()

	ds, err := NormalizeTimeline([]any{
		[]any{"Washington", "1789-04-29", "1797-03-03"},
		[]any{"Adams", "garbage", "1801-03-03"},
	})
	require.NoError(t, err)
	require.Len(t, ds.Spans, 1)
	assert.Equal(t, "Washington", ds.Spans[0].Name)
	assert.Equal(t, 1789, ds.Spans[0].Start.Year())
	assert.Equal(t, 1, ds.Dropped)

	ds, err = NormalizeCalendar(coerce.NewMap("2021-02-01", 4, "2021-02-02", 6))
	require.NoError(t, err)
	require.Len(t, ds.Days, 2)
	assert.Equal(t, time.Date(2021, 2, 2, 0, 0, 0, 0, time.UTC), ds.Days[1].Date)
	assert.Equal(t, 6.0, ds.Days[1].Value)

	_, err = NormalizeTimeline([]any{[]any{"short", "2021-01-01"}})
	assert.ErrorIs(t, err, ErrMalformedPoint)
}

func TestSeriesMarkerLimitFromAttrs(t *testing.T) {
	t.Parallel()

	ds, err := ProcessSeries([]any{
		coerce.NewMap("name", "dense", "data", []any{}, "maxMarkerPoints", 10),
	}, KeyDateTime)
	require.NoError(t, err)
	assert.Equal(t, 10, ds.Series[0].MaxMarkerPoints)
}

func TestParseChartType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]ChartType{
		"LineChart": LineChart,
		"line":      LineChart,
		"pie_chart": PieChart,
		"gauge":     Gauge,
		"Heatmap":   Heatmap,
		"geo":       GeoChart,
	} {
		got, err := ParseChartType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseChartType("radar")
	assert.ErrorIs(t, err, ErrUnknownChartType)
}
