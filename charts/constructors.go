package charts

import (
	"context"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
)

// LineChart builds a line chart. Keys are times unless discrete is set.
func (m *Manager) LineChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.LineChart, el, src, opts)
}

// PieChart builds a pie chart from [label, value] pairs.
func (m *Manager) PieChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.PieChart, el, src, opts)
}

// ColumnChart builds a vertical bar chart.
func (m *Manager) ColumnChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.ColumnChart, el, src, opts)
}

// BarChart builds a horizontal bar chart.
func (m *Manager) BarChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.BarChart, el, src, opts)
}

// ComboChart builds a chart whose series types come from the types option.
func (m *Manager) ComboChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.ComboChart, el, src, opts)
}

// AreaChart builds an area chart.
func (m *Manager) AreaChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.AreaChart, el, src, opts)
}

// GeoChart builds a region map from [region, value] pairs.
func (m *Manager) GeoChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.GeoChart, el, src, opts)
}

// ScatterChart builds a scatter plot with numeric keys.
func (m *Manager) ScatterChart(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.ScatterChart, el, src, opts)
}

// Gauge builds a gauge.
func (m *Manager) Gauge(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.Gauge, el, src, opts)
}

// Timeline builds a timeline from [name, start, end] rows.
func (m *Manager) Timeline(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.Timeline, el, src, opts)
}

// Calendar builds a calendar from [date, value] rows.
func (m *Manager) Calendar(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.Calendar, el, src, opts)
}

// Heatmap builds a category heatmap.
func (m *Manager) Heatmap(ctx context.Context, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.NewChart(ctx, engine.Heatmap, el, src, opts)
}
