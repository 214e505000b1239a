package term

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

func chart(t *testing.T, typ engine.ChartType, data any, raw *coerce.Map) *adapter.Chart {
	t.Helper()
	opts, err := engine.ParseOptions(raw)
	require.NoError(t, err)
	ds, err := engine.NewNormalizer().Normalize(typ, data, opts)
	require.NoError(t, err)
	return &adapter.Chart{ID: "chart-t1", Type: typ, Data: ds, Options: opts}
}

func newAdapter() *Adapter {
	return New(WithLogger(logging.Discard()), WithSize(20, 6))
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []engine.ChartType{
		engine.LineChart, engine.PieChart, engine.ColumnChart, engine.BarChart,
		engine.AreaChart, engine.ScatterChart, engine.Gauge,
	}, adapter.Capabilities(New()))
}

func TestRenderLineChartSingleTimeSeries(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.LineChart, coerce.NewMap("2021-01-01", 1, "2021-01-05", 4),
		coerce.NewMap("library", coerce.NewMap("title", "Signups")))
	h, err := newAdapter().RenderLineChart(context.Background(), c)
	require.NoError(t, err)

	body := string(h.Body)
	assert.Equal(t, MediaType, h.MediaType)
	assert.True(t, strings.HasPrefix(body, "Signups"), body)
	assert.NotContains(t, body, "■ Value", "single unnamed series has no legend")
	assert.Equal(t, false, h.Options.Get("legend"))
}

func TestRenderLineChartMultiSeriesLegend(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.LineChart, []any{
		coerce.NewMap("name", "Web", "data", []any{[]any{"2021-01-01", 1}, []any{"2021-01-02", 3}}),
		coerce.NewMap("name", "App", "data", []any{[]any{"2021-01-01", 2}}),
	}, coerce.NewMap("xtitle", "Day"))
	h, err := newAdapter().RenderLineChart(context.Background(), c)
	require.NoError(t, err)

	body := string(h.Body)
	assert.Contains(t, body, "■ Web")
	assert.Contains(t, body, "■ App")
	assert.Contains(t, body, "Day")
}

func TestRenderColumnChart(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.ColumnChart, []any{[]any{"a", 0}, []any{"b", 6}}, nil)
	h, err := newAdapter().RenderColumnChart(context.Background(), c)
	require.NoError(t, err)

	lines := strings.Split(string(h.Body), "\n")
	require.GreaterOrEqual(t, len(lines), 8)
	// the tallest column fills every row, the zero column none
	for _, row := range lines[:6] {
		assert.Equal(t, "  █ ", row)
	}
	assert.Equal(t, "a b", lines[7])
}

func TestRenderColumnChartStacked(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.ColumnChart, []any{
		coerce.NewMap("name", "A", "data", []any{[]any{"x", 2}}),
		coerce.NewMap("name", "B", "data", []any{[]any{"x", 4}}),
	}, coerce.NewMap("stacked", true))
	h, err := newAdapter().RenderColumnChart(context.Background(), c)
	require.NoError(t, err)

	lines := strings.Split(string(h.Body), "\n")
	for _, row := range lines[:6] {
		assert.Equal(t, "█ ", row)
	}
}

func TestRenderBarChart(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.BarChart, []any{[]any{"long", 10}, []any{"s", 5}}, coerce.NewMap("max", 10))
	h, err := newAdapter().RenderBarChart(context.Background(), c)
	require.NoError(t, err)

	lines := strings.Split(string(h.Body), "\n")
	assert.Equal(t, "long "+strings.Repeat("█", 20)+" 10", lines[0])
	assert.Equal(t, "s    "+strings.Repeat("█", 10)+" 5", lines[1])
}

func TestRenderPieChart(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.PieChart, []any{[]any{"Tea", 3}, []any{"Coffee", 1}}, nil)
	h, err := newAdapter().RenderPieChart(context.Background(), c)
	require.NoError(t, err)

	body := string(h.Body)
	assert.Contains(t, body, "75.0%")
	assert.Contains(t, body, "25.0%")
}

func TestRenderGauge(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.Gauge, []any{[]any{"CPU", 50}}, nil)
	h, err := newAdapter().RenderGauge(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "CPU ["+strings.Repeat("█", 10)+strings.Repeat("░", 10)+"] 50", string(h.Body))
	assert.Equal(t, []any{0.0, 100.0}, h.Options.Get("scale"))
}

func TestRenderScatterAndEmpty(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.ScatterChart, []any{[]any{1, 2}, []any{3, 4}}, nil)
	h, err := newAdapter().RenderScatterChart(context.Background(), c)
	require.NoError(t, err)
	assert.NotEmpty(t, h.Body)

	empty := chart(t, engine.ColumnChart, []any{}, nil)
	h, err = newAdapter().RenderColumnChart(context.Background(), empty)
	require.NoError(t, err)
	assert.Contains(t, string(h.Body), noData)

	_, err = newAdapter().RenderGauge(context.Background(), &adapter.Chart{Type: engine.Gauge})
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, scale(0, 0, 10, 20))
	assert.Equal(t, 10, scale(5, 0, 10, 20))
	assert.Equal(t, 20, scale(50, 0, 10, 20))
	assert.Equal(t, 0, scale(-5, 0, 10, 20))
}
