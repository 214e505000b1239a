package adapter

import (
	"context"
	"time"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
)

// ============================================================================
// ADAPTER CAPABILITIES
// ============================================================================
// A backend implements Adapter plus any subset of the renderer interfaces
// below. The registry discovers capabilities with type assertions, so adding
// a chart type to a backend never touches normalization code.
// ============================================================================

// Adapter is a named rendering backend.
type Adapter interface {
	Name() string
}

// Chart is everything a backend needs to draw one chart.
type Chart struct {
	ID      string
	Type    engine.ChartType
	Data    *engine.Dataset
	Options engine.Options
}

// Handle is the result of a render: the artifact and where it came from.
type Handle struct {
	ID         string
	ChartID    string
	Adapter    string
	MediaType  string
	Body       []byte
	Options    *coerce.Map
	RenderedAt time.Time
}

// LineChartRenderer renders line charts.
type LineChartRenderer interface {
	RenderLineChart(ctx context.Context, c *Chart) (*Handle, error)
}

// PieChartRenderer renders pie charts.
type PieChartRenderer interface {
	RenderPieChart(ctx context.Context, c *Chart) (*Handle, error)
}

// ColumnChartRenderer renders vertical bar charts.
type ColumnChartRenderer interface {
	RenderColumnChart(ctx context.Context, c *Chart) (*Handle, error)
}

// BarChartRenderer renders horizontal bar charts.
type BarChartRenderer interface {
	RenderBarChart(ctx context.Context, c *Chart) (*Handle, error)
}

// ComboChartRenderer renders charts mixing series types.
type ComboChartRenderer interface {
	RenderComboChart(ctx context.Context, c *Chart) (*Handle, error)
}

// AreaChartRenderer renders area charts.
type AreaChartRenderer interface {
	RenderAreaChart(ctx context.Context, c *Chart) (*Handle, error)
}

// GeoChartRenderer renders region maps.
type GeoChartRenderer interface {
	RenderGeoChart(ctx context.Context, c *Chart) (*Handle, error)
}

// ScatterChartRenderer renders scatter plots.
type ScatterChartRenderer interface {
	RenderScatterChart(ctx context.Context, c *Chart) (*Handle, error)
}

// GaugeRenderer renders gauges.
type GaugeRenderer interface {
	RenderGauge(ctx context.Context, c *Chart) (*Handle, error)
}

// TimelineRenderer renders timelines.
type TimelineRenderer interface {
	RenderTimeline(ctx context.Context, c *Chart) (*Handle, error)
}

// CalendarRenderer renders calendar heatmaps.
type CalendarRenderer interface {
	RenderCalendar(ctx context.Context, c *Chart) (*Handle, error)
}

// HeatmapRenderer renders category heatmaps.
type HeatmapRenderer interface {
	RenderHeatmap(ctx context.Context, c *Chart) (*Handle, error)
}

// renderFunc returns the render method of a for chart type t, or nil.
func renderFunc(a Adapter, t engine.ChartType) func(context.Context, *Chart) (*Handle, error) {
	switch t {
	case engine.LineChart:
		if r, ok := a.(LineChartRenderer); ok {
			return r.RenderLineChart
		}
	case engine.PieChart:
		if r, ok := a.(PieChartRenderer); ok {
			return r.RenderPieChart
		}
	case engine.ColumnChart:
		if r, ok := a.(ColumnChartRenderer); ok {
			return r.RenderColumnChart
		}
	case engine.BarChart:
		if r, ok := a.(BarChartRenderer); ok {
			return r.RenderBarChart
		}
	case engine.ComboChart:
		if r, ok := a.(ComboChartRenderer); ok {
			return r.RenderComboChart
		}
	case engine.AreaChart:
		if r, ok := a.(AreaChartRenderer); ok {
			return r.RenderAreaChart
		}
	case engine.GeoChart:
		if r, ok := a.(GeoChartRenderer); ok {
			return r.RenderGeoChart
		}
	case engine.ScatterChart:
		if r, ok := a.(ScatterChartRenderer); ok {
			return r.RenderScatterChart
		}
	case engine.Gauge:
		if r, ok := a.(GaugeRenderer); ok {
			return r.RenderGauge
		}
	case engine.Timeline:
		if r, ok := a.(TimelineRenderer); ok {
			return r.RenderTimeline
		}
	case engine.Calendar:
		if r, ok := a.(CalendarRenderer); ok {
			return r.RenderCalendar
		}
	case engine.Heatmap:
		if r, ok := a.(HeatmapRenderer); ok {
			return r.RenderHeatmap
		}
	}
	return nil
}

// Supports reports whether a can render chart type t.
func Supports(a Adapter, t engine.ChartType) bool {
	return renderFunc(a, t) != nil
}

// Capabilities lists the chart types a can render.
func Capabilities(a Adapter) []engine.ChartType {
	var out []engine.ChartType
	for _, t := range engine.ChartTypes {
		if Supports(a, t) {
			out = append(out, t)
		}
	}
	return out
}
