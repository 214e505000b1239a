package echarts

import (
	"context"
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
	return &adapter.Chart{ID: "chart-e1", Type: typ, Data: ds, Options: opts}
}

func option(t *testing.T, h *adapter.Handle, keys ...string) any {
	t.Helper()
	v, ok := h.Options.Path(keys...)
	require.True(t, ok, "missing %v in %s", keys, h.Options)
	return v
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	a := New()
	assert.Equal(t, Name, a.Name())
	assert.Equal(t, []engine.ChartType{
		engine.LineChart, engine.PieChart, engine.ColumnChart, engine.BarChart,
		engine.ComboChart, engine.AreaChart, engine.ScatterChart, engine.Gauge, engine.Heatmap,
	}, adapter.Capabilities(a))
}

func TestRenderLineChart(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()), WithSize("640px", "320px"))
	c := chart(t, engine.LineChart, coerce.NewMap("2021-01-02", 2, "2021-01-01", 1),
		coerce.NewMap("ytitle", "Visits", "library", coerce.NewMap("title", "Traffic")))

	h, err := a.RenderLineChart(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, MediaType, h.MediaType)

	body := string(h.Body)
	assert.Contains(t, body, "goecharts_chart_e1 = echarts.init(document.getElementById('chart_e1')")
	assert.Contains(t, body, "Traffic")
	assert.Contains(t, body, "Visits")
	assert.Contains(t, body, "2021-01-01")

	assert.Equal(t, false, option(t, h, "legend", "show"))
	assert.Equal(t, 0.0, option(t, h, "yAxis", "min"))
	assert.Equal(t, "640px", option(t, h, "width"))
}

func TestRenderColumnAndBarAxes(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()))
	data := []any{
		coerce.NewMap("name", "North", "data", []any{[]any{"Q1", 3}, []any{"Q2", 4}}),
		coerce.NewMap("name", "South", "data", []any{[]any{"Q1", -1}}),
	}

	c := chart(t, engine.ColumnChart, data, coerce.NewMap("stacked", true, "max", 10))
	h, err := a.RenderColumnChart(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, true, option(t, h, "legend", "show"))
	assert.Equal(t, "total", option(t, h, "stack"))
	assert.Equal(t, 10.0, option(t, h, "yAxis", "max"))
	_, hasMin := h.Options.Path("yAxis", "min")
	assert.False(t, hasMin)
	assert.Contains(t, string(h.Body), "North")
	assert.Contains(t, string(h.Body), "South")

	c = chart(t, engine.BarChart, data, coerce.NewMap("min", 1))
	h, err = a.RenderBarChart(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1.0, option(t, h, "xAxis", "min"))
	assert.Equal(t, "value", option(t, h, "xAxis", "type"))
	assert.Equal(t, "category", option(t, h, "yAxis", "type"))
}

func TestRenderComboChart(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()))
	c := chart(t, engine.ComboChart, []any{
		coerce.NewMap("name", "Revenue", "data", []any{[]any{"Jan", 5}}),
		coerce.NewMap("name", "Trend", "data", []any{[]any{"Jan", 4}}),
	}, coerce.NewMap("types", []any{"column"}))

	h, err := a.RenderComboChart(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []any{"bars", "line"}, option(t, h, "seriesTypes"))
	assert.Contains(t, string(h.Body), "Revenue")
	assert.Contains(t, string(h.Body), "Trend")
}

func TestComboType(t *testing.T) {
	t.Parallel()

	types := []string{"column", "line", "bars", "area"}
	assert.Equal(t, "bars", comboType(types, 0))
	assert.Equal(t, "line", comboType(types, 1))
	assert.Equal(t, "bars", comboType(types, 2))
	assert.Equal(t, "line", comboType(types, 3))
	assert.Equal(t, "line", comboType(types, 9))
}

func TestRenderAreaAndScatter(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()))

	area := chart(t, engine.AreaChart, []any{[]any{"2021-01-01", 1}}, nil)
	h, err := a.RenderAreaChart(context.Background(), area)
	require.NoError(t, err)
	assert.Equal(t, "total", option(t, h, "stack"))

	scatter := chart(t, engine.ScatterChart, []any{[]any{1, 2}, []any{3, 4}}, nil)
	h, err = a.RenderScatterChart(context.Background(), scatter)
	require.NoError(t, err)
	assert.Equal(t, "value", option(t, h, "xAxis", "type"))
	assert.Equal(t, "item", option(t, h, "tooltip", "trigger"))
}

func TestRenderPieAndGauge(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()))

	pie := chart(t, engine.PieChart, []any{[]any{"Apples", 3}, []any{"Pears", 2}}, nil)
	h, err := a.RenderPieChart(context.Background(), pie)
	require.NoError(t, err)
	assert.Contains(t, string(h.Body), "Apples")
	_, hasMin := h.Options.Path("yAxis", "min")
	assert.False(t, hasMin, "pie charts have no value axis")

	gauge := chart(t, engine.Gauge, []any{[]any{"Speed", 80}}, nil)
	h, err = a.RenderGauge(context.Background(), gauge)
	require.NoError(t, err)
	assert.Contains(t, string(h.Body), "Speed")
}

func TestLibraryAndColorsReachPage(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()))
	raw := coerce.NewMap(
		"colors", []any{"#abcdef"},
		"library", coerce.NewMap("backgroundColor", "#123456", "title", "Fruit"),
	)

	pie := chart(t, engine.PieChart, []any{[]any{"Apples", 3}}, raw)
	h, err := a.RenderPieChart(context.Background(), pie)
	require.NoError(t, err)
	body := string(h.Body)
	assert.Contains(t, body, "#abcdef")
	assert.Contains(t, body, `goecharts_chart_e1.setOption({"backgroundColor":"#123456"});`)
	assert.Equal(t, "#123456", option(t, h, "backgroundColor"))
	assert.Equal(t, []any{"#abcdef"}, option(t, h, "colors"))

	gauge := chart(t, engine.Gauge, []any{[]any{"Speed", 80}}, raw)
	h, err = a.RenderGauge(context.Background(), gauge)
	require.NoError(t, err)
	assert.Contains(t, string(h.Body), "#abcdef")
	assert.Contains(t, string(h.Body), "backgroundColor")

	line := chart(t, engine.LineChart, coerce.NewMap("2021-01-01", 1), raw)
	h, err = a.RenderLineChart(context.Background(), line)
	require.NoError(t, err)
	assert.Contains(t, string(h.Body), `"backgroundColor":"#123456"`)
	assert.NotContains(t, string(h.Body), `setOption({"backgroundColor":"#123456","title"`, "translated keys are not passed twice")
}

func TestElementID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "chart_9f1c_x", elementID("chart-9f1c.x"))
	assert.Equal(t, "sales_2021", elementID("sales_2021"))
}

func TestRenderHeatmap(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(logging.Discard()))
	c := chart(t, engine.Heatmap, []any{
		coerce.NewMap("name", "Commits", "data", []any{[]any{"2021-01-03", 4}, []any{"2021-01-04", 2}}),
	}, coerce.NewMap("groupBy", "weekdays", "max", 10))

	h, err := a.RenderHeatmap(context.Background(), c)
	require.NoError(t, err)
	body := string(h.Body)
	assert.Contains(t, body, "Commits")
	assert.Contains(t, body, "Sunday")
	_, hasMax := h.Options.Path("yAxis", "max")
	assert.False(t, hasMax, "max bounds the color scale")
	assert.Equal(t, "category", option(t, h, "yAxis", "type"))
}

func TestRenderWithoutData(t *testing.T) {
	t.Parallel()

	_, err := New().RenderHeatmap(context.Background(), &adapter.Chart{Type: engine.Heatmap})
	assert.Error(t, err)
}

func TestAlignSeries(t *testing.T) {
	t.Parallel()

	c := chart(t, engine.LineChart, []any{
		coerce.NewMap("name", "A", "data", []any{[]any{"2021-01-02", 2}}),
		coerce.NewMap("name", "B", "data", []any{[]any{"2021-01-01", 1}, []any{"2021-01-02", 3}}),
	}, nil)

	g := alignSeries(c.Data)
	assert.Equal(t, []string{"2021-01-01", "2021-01-02"}, g.labels)
	assert.Equal(t, []any{nil, 2.0}, g.values[0])
	assert.Equal(t, []any{1.0, 3.0}, g.values[1])
}
