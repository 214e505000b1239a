// Package term renders charts as text for terminals: braille line plots
// from ntcharts and block bars styled with lipgloss.
package term

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/bolt/v3"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

// Name is the backend name used by the adapter option.
const Name = "term"

// MediaType of rendered charts.
const MediaType = "text/plain; charset=utf-8"

// palette colors series when the chart sets no colors.
var palette = []string{"#89b4fa", "#fab387", "#a6e3a1", "#f38ba8", "#cba6f7", "#f9e2af", "#94e2d5"}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cdd6f4"))
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475a"))
)

// Option configures the Adapter.
type Option func(*Adapter)

// WithSize sets the plot size in terminal cells.
func WithSize(width, height int) Option {
	return func(a *Adapter) {
		a.width, a.height = width, height
	}
}

// WithLogger sets the logger.
func WithLogger(l *bolt.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// Adapter renders line, area, column, bar, scatter, pie and gauge charts.
type Adapter struct {
	width, height int
	logger        *bolt.Logger

	canon    engine.Canonicalizer
	barCanon engine.Canonicalizer
}

// New returns an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{width: 60, height: 12}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.Or(a.logger)

	a.canon = engine.Canonicalizer{
		Defaults:   coerce.NewMap("legend", true),
		HideLegend: func(o *coerce.Map) { o.Set("legend", false) },
		SetMin:     func(o *coerce.Map, v float64) { o.SetPath(v, "valueAxis", "min") },
		SetMax:     func(o *coerce.Map, v float64) { o.SetPath(v, "valueAxis", "max") },
		SetStacked: func(o *coerce.Map) { o.Set("stacked", true) },
		SetXTitle:  func(o *coerce.Map, title string) { o.SetPath(title, "xAxis", "title") },
		SetYTitle:  func(o *coerce.Map, title string) { o.SetPath(title, "valueAxis", "title") },
	}
	// horizontal bars put the value axis along x
	a.barCanon = a.canon
	a.barCanon.SetXTitle = a.canon.SetYTitle
	a.barCanon.SetYTitle = a.canon.SetXTitle
	return a
}

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return Name }

// ============================================================================
// LAYOUT HELPERS
// ============================================================================

func colorFor(colors []string, i int) lipgloss.Style {
	if len(colors) == 0 {
		colors = palette
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i%len(colors)]))
}

// valueRange returns the value axis bounds: explicit min/max from the
// option tree, else the data extent. The range is never empty.
func valueRange(tree *coerce.Map, ds *engine.Dataset) (lo, hi float64) {
	lo, hi, ok := ds.Extent()
	if !ok {
		lo, hi = 0, 1
	}
	if v, ok := tree.Path("valueAxis", "min"); ok {
		lo = coerce.ToNumber(v)
	}
	if v, ok := tree.Path("valueAxis", "max"); ok {
		hi = coerce.ToNumber(v)
	}
	if stacked, _ := tree.Get("stacked").(bool); stacked {
		hi = math.Max(hi, stackedMax(ds))
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func stackedMax(ds *engine.Dataset) float64 {
	sums := make(map[string]float64)
	best := math.Inf(-1)
	for _, s := range ds.Series {
		for _, p := range s.Points {
			k := p.Key.String()
			sums[k] += p.Value
			best = math.Max(best, sums[k])
		}
	}
	return best
}

// frame wraps a plot with the title, axis titles and legend.
func frame(tree *coerce.Map, plot string, names []string, colors []string) string {
	var b strings.Builder
	if title, ok := tree.Get("title").(string); ok && title != "" {
		b.WriteString(titleStyle.Render(title))
		b.WriteByte('\n')
	}
	if v, ok := tree.Path("valueAxis", "title"); ok {
		b.WriteString(labelStyle.Render(coerce.ToText(v)))
		b.WriteByte('\n')
	}
	b.WriteString(plot)
	if v, ok := tree.Path("xAxis", "title"); ok {
		b.WriteByte('\n')
		b.WriteString(labelStyle.Render(coerce.ToText(v)))
	}
	if show, _ := tree.Get("legend").(bool); show && len(names) > 0 {
		items := make([]string, len(names))
		for i, n := range names {
			items[i] = colorFor(colors, i).Render("■") + " " + n
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(items, "  "))
	}
	return b.String()
}

func seriesNames(ds *engine.Dataset) []string {
	out := make([]string, len(ds.Series))
	for i, s := range ds.Series {
		out[i] = s.Name
	}
	return out
}

func (a *Adapter) handle(c *adapter.Chart, body string, tree *coerce.Map) *adapter.Handle {
	logging.NewEvent(a.logger.Debug()).
		Add(logging.Adapter(Name)).
		Add(logging.ChartID(c.ID)).
		Add(logging.ChartType(string(c.Type))).
		Msg("chart drawn")
	return &adapter.Handle{MediaType: MediaType, Body: []byte(body), Options: tree}
}

func requireData(c *adapter.Chart) error {
	if c.Data == nil {
		return fmt.Errorf("render %s: no data", c.Type)
	}
	return nil
}

// ============================================================================
// RENDERERS
// ============================================================================

// RenderLineChart implements adapter.LineChartRenderer.
func (a *Adapter) RenderLineChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Build(c.Data, c.Options, nil)
	plot := a.plotLines(c.Data, tree, c.Options.Colors)
	return a.handle(c, frame(tree, plot, seriesNames(c.Data), c.Options.Colors), tree), nil
}

// RenderAreaChart implements adapter.AreaChartRenderer. Areas are drawn as
// their outlines.
func (a *Adapter) RenderAreaChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.RenderLineChart(ctx, c)
}

// RenderScatterChart implements adapter.ScatterChartRenderer.
func (a *Adapter) RenderScatterChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Build(c.Data, c.Options, nil)
	plot := a.plotScatter(c.Data, tree, c.Options.Colors)
	return a.handle(c, frame(tree, plot, seriesNames(c.Data), c.Options.Colors), tree), nil
}

// RenderColumnChart implements adapter.ColumnChartRenderer.
func (a *Adapter) RenderColumnChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Build(c.Data, c.Options, nil)
	plot := a.columns(c.Data, tree, c.Options.Colors)
	return a.handle(c, frame(tree, plot, seriesNames(c.Data), c.Options.Colors), tree), nil
}

// RenderBarChart implements adapter.BarChartRenderer.
func (a *Adapter) RenderBarChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.barCanon.Build(c.Data, c.Options, nil)
	plot := a.bars(c.Data, tree, c.Options.Colors)
	return a.handle(c, frame(tree, plot, seriesNames(c.Data), c.Options.Colors), tree), nil
}

// RenderPieChart implements adapter.PieChartRenderer. Each slice is a bar
// sized by its share of the total.
func (a *Adapter) RenderPieChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Simple(c.Options, coerce.NewMap("legend", false))
	return a.handle(c, frame(tree, a.shares(c.Data, c.Options.Colors), nil, nil), tree), nil
}

// RenderGauge implements adapter.GaugeRenderer. The scale runs from min
// to max, 0 to 100 by default.
func (a *Adapter) RenderGauge(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	lo, hi := 0.0, 100.0
	if c.Options.Min != nil {
		lo = *c.Options.Min
	}
	if c.Options.Max != nil {
		hi = *c.Options.Max
	}
	tree := a.canon.Simple(c.Options, coerce.NewMap("legend", false, "scale", []any{lo, hi}))
	return a.handle(c, frame(tree, a.gauges(c.Data, lo, hi, c.Options.Colors), nil, nil), tree), nil
}
