// Package echarts renders charts as standalone HTML pages with go-echarts.
package echarts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

// Name is the backend name used by the adapter option.
const Name = "echarts"

// MediaType of rendered pages.
const MediaType = "text/html; charset=utf-8"

// heatColors is the low/high color pair of the heatmap scale.
var heatColors = []string{"#f6c7b6", "#ce502d"}

// ============================================================================
// OPTIONS
// ============================================================================

// Option configures the Adapter.
type Option func(*config)

type config struct {
	width           string
	height          string
	maxMarkerPoints int
	logger          *bolt.Logger
}

// WithSize sets the CSS width and height of the chart container.
func WithSize(width, height string) Option {
	return func(c *config) {
		c.width = width
		c.height = height
	}
}

// WithMaxMarkerPoints hides line symbols when a series has more points
// than n, unless the chart or series sets its own limit.
func WithMaxMarkerPoints(n int) Option {
	return func(c *config) {
		c.maxMarkerPoints = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *bolt.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// ============================================================================
// ADAPTER
// ============================================================================

// Adapter renders line, area, column, bar, combo, pie, scatter, heatmap
// and gauge charts. Library keys are applied to the echarts option as
// given, after the computed options.
type Adapter struct {
	cfg    config
	logger *bolt.Logger

	canon     engine.Canonicalizer
	barCanon  engine.Canonicalizer
	heatCanon engine.Canonicalizer
}

// New returns an Adapter.
func New(options ...Option) *Adapter {
	cfg := config{width: "100%", height: "400px"}
	for _, opt := range options {
		opt(&cfg)
	}

	a := &Adapter{cfg: cfg, logger: logging.Or(cfg.logger)}
	a.canon = engine.Canonicalizer{
		Defaults: coerce.NewMap(
			"width", cfg.width,
			"height", cfg.height,
			"tooltip", coerce.NewMap("trigger", "axis"),
			"legend", coerce.NewMap("show", true),
			"xAxis", coerce.NewMap(),
			"yAxis", coerce.NewMap(),
		),
		HideLegend: func(o *coerce.Map) { o.SetPath(false, "legend", "show") },
		SetMin:     func(o *coerce.Map, v float64) { o.SetPath(v, "yAxis", "min") },
		SetMax:     func(o *coerce.Map, v float64) { o.SetPath(v, "yAxis", "max") },
		SetStacked: func(o *coerce.Map) { o.Set("stack", "total") },
		SetXTitle:  func(o *coerce.Map, title string) { o.SetPath(title, "xAxis", "name") },
		SetYTitle:  func(o *coerce.Map, title string) { o.SetPath(title, "yAxis", "name") },
	}
	a.barCanon = a.canon.WithAxisHooks(
		func(o *coerce.Map, v float64) { o.SetPath(v, "xAxis", "min") },
		func(o *coerce.Map, v float64) { o.SetPath(v, "xAxis", "max") },
	)
	// min and max bound the color scale instead of an axis
	a.heatCanon = a.canon.WithAxisHooks(nil, nil)
	return a
}

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return Name }

type renderer interface {
	Render(w io.Writer) error
	AddJSFuncs(fn ...string)
}

// consumed are library keys that globals translates into go-echarts
// options and that echarts itself would read differently.
var consumed = []string{"width", "height", "title", "subtitle"}

// passthrough returns the library keys to hand to echarts verbatim.
func passthrough(lib *coerce.Map) *coerce.Map {
	out := lib.Clone()
	for _, k := range consumed {
		if _, isMap := out.Get(k).(*coerce.Map); !isMap {
			out.Delete(k)
		}
	}
	return out
}

func (a *Adapter) finish(c *adapter.Chart, chart renderer, tree *coerce.Map) (*adapter.Handle, error) {
	// echarts merges a second setOption into the first at every depth
	if lib := passthrough(c.Options.Library); lib.Len() > 0 {
		js, err := json.Marshal(lib)
		if err != nil {
			return nil, fmt.Errorf("render %s: library: %w", c.Type, err)
		}
		chart.AddJSFuncs(fmt.Sprintf("%s.setOption(%s);", render.EchartsInstancePlaceholder, js))
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", c.Type, err)
	}
	logging.NewEvent(a.logger.Debug()).
		Add(logging.Adapter(Name)).
		Add(logging.ChartID(c.ID)).
		Add(logging.ChartType(string(c.Type))).
		Add(logging.Count(buf.Len())).
		Msg("chart rendered")
	return &adapter.Handle{MediaType: MediaType, Body: buf.Bytes(), Options: tree}, nil
}

func requireData(c *adapter.Chart) error {
	if c.Data == nil {
		return fmt.Errorf("render %s: no data", c.Type)
	}
	return nil
}

// ============================================================================
// OPTION TREE → go-echarts
// ============================================================================

func text(tree *coerce.Map, keys ...string) string {
	v, ok := tree.Path(keys...)
	if !ok || v == nil {
		return ""
	}
	return coerce.ToText(v)
}

func number(tree *coerce.Map, keys ...string) any {
	v, ok := tree.Path(keys...)
	if !ok || v == nil {
		return nil
	}
	return finite(coerce.ToNumber(v))
}

func flag(tree *coerce.Map, def bool, keys ...string) bool {
	v, ok := tree.Path(keys...)
	if !ok {
		return def
	}
	b, isBool := v.(bool)
	if !isBool {
		return def
	}
	return b
}

// elementID makes id usable as the page's chart instance variable suffix.
func elementID(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, id)
}

// globals maps the resolved option tree onto go-echarts global options.
func globals(c *adapter.Chart, tree *coerce.Map) []charts.GlobalOpts {
	out := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: elementID(c.ID),
			Width:   text(tree, "width"),
			Height:  text(tree, "height"),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(flag(tree, true, "legend", "show"))}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: text(tree, "xAxis", "name"),
			Type: text(tree, "xAxis", "type"),
			Min:  number(tree, "xAxis", "min"),
			Max:  number(tree, "xAxis", "max"),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: text(tree, "yAxis", "name"),
			Type: text(tree, "yAxis", "type"),
			Min:  number(tree, "yAxis", "min"),
			Max:  number(tree, "yAxis", "max"),
		}),
	}
	if colors := palette(tree); len(colors) > 0 {
		out = append(out, charts.WithColorsOpts(colors))
	}
	if trigger := text(tree, "tooltip", "trigger"); trigger != "" {
		out = append(out, charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: trigger}))
	}
	if title := text(tree, "title"); title != "" {
		out = append(out, charts.WithTitleOpts(opts.Title{Title: title, Subtitle: text(tree, "subtitle")}))
	}
	return out
}

// palette returns the "colors" list.
func palette(tree *coerce.Map) opts.Colors {
	list, _ := tree.Get("colors").([]any)
	out := make(opts.Colors, len(list))
	for i, v := range list {
		out[i] = coerce.ToText(v)
	}
	return out
}

// seriesColor returns the color for series i from the "colors" list.
func seriesColor(tree *coerce.Map, i int) string {
	list, ok := tree.Get("colors").([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	return coerce.ToText(list[i%len(list)])
}

func (a *Adapter) markerLimit(c *adapter.Chart, s engine.Series) int {
	switch {
	case s.MaxMarkerPoints > 0:
		return s.MaxMarkerPoints
	case c.Options.MaxMarkerPoints > 0:
		return c.Options.MaxMarkerPoints
	case a.cfg.maxMarkerPoints > 0:
		return a.cfg.maxMarkerPoints
	}
	return math.MaxInt
}

// ============================================================================
// RENDERERS
// ============================================================================

func (a *Adapter) line(c *adapter.Chart, tree *coerce.Map, area bool) *charts.Line {
	g := alignSeries(c.Data)
	line := charts.NewLine()
	line.SetGlobalOptions(globals(c, tree)...)
	line.SetXAxis(g.labels)

	stack := text(tree, "stack")
	for i, s := range c.Data.Series {
		data := make([]opts.LineData, len(g.values[i]))
		for j, v := range g.values[i] {
			data[j] = opts.LineData{Value: v}
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{
				Stack:      stack,
				ShowSymbol: opts.Bool(len(s.Points) <= a.markerLimit(c, s)),
			}),
		}
		if color := seriesColor(tree, i); color != "" {
			seriesOpts = append(seriesOpts,
				charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: color}),
			)
		}
		if area {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.5)}))
		}
		if s.DataLabels {
			seriesOpts = append(seriesOpts, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
		}
		line.AddSeries(s.Name, data, seriesOpts...)
	}
	return line
}

// RenderLineChart implements adapter.LineChartRenderer.
func (a *Adapter) RenderLineChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Build(c.Data, c.Options, nil)
	return a.finish(c, a.line(c, tree, false), tree)
}

// RenderAreaChart implements adapter.AreaChartRenderer. Areas stack by
// default.
func (a *Adapter) RenderAreaChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Build(c.Data, c.Options, coerce.NewMap("stack", "total"))
	return a.finish(c, a.line(c, tree, true), tree)
}

func (a *Adapter) bar(c *adapter.Chart, tree *coerce.Map, include func(i int) bool) *charts.Bar {
	g := alignSeries(c.Data)
	bar := charts.NewBar()
	bar.SetGlobalOptions(globals(c, tree)...)
	bar.SetXAxis(g.labels)

	stack := text(tree, "stack")
	for i, s := range c.Data.Series {
		if include != nil && !include(i) {
			continue
		}
		data := make([]opts.BarData, len(g.values[i]))
		for j, v := range g.values[i] {
			data[j] = opts.BarData{Value: v}
		}

		var seriesOpts []charts.SeriesOpts
		if stack != "" {
			seriesOpts = append(seriesOpts, charts.WithBarChartOpts(opts.BarChart{Stack: stack}))
		}
		if color := seriesColor(tree, i); color != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
		}
		if s.DataLabels {
			seriesOpts = append(seriesOpts, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
		}
		bar.AddSeries(s.Name, data, seriesOpts...)
	}
	return bar
}

// RenderColumnChart implements adapter.ColumnChartRenderer.
func (a *Adapter) RenderColumnChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Build(c.Data, c.Options, nil)
	return a.finish(c, a.bar(c, tree, nil), tree)
}

// RenderBarChart implements adapter.BarChartRenderer. The value axis is
// horizontal.
func (a *Adapter) RenderBarChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	overrides := coerce.NewMap(
		"xAxis", coerce.NewMap("type", "value"),
		"yAxis", coerce.NewMap("type", "category"),
	)
	tree := a.barCanon.Build(c.Data, c.Options, overrides)
	return a.finish(c, a.bar(c, tree, nil).XYReversal(), tree)
}

// comboType returns the series type for series i: "bars" for columns,
// "line" otherwise.
func comboType(types []string, i int) string {
	if i >= len(types) {
		return "line"
	}
	switch types[i] {
	case "column", "bar", "bars":
		return "bars"
	}
	return "line"
}

// RenderComboChart implements adapter.ComboChartRenderer. Series listed as
// "column" in the types option are bars; the rest are lines drawn over
// them.
func (a *Adapter) RenderComboChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	types := make([]any, len(c.Data.Series))
	for i := range c.Data.Series {
		types[i] = comboType(c.Options.Types, i)
	}
	tree := a.canon.Build(c.Data, c.Options, coerce.NewMap("seriesTypes", types))

	isBar := func(i int) bool { return comboType(c.Options.Types, i) == "bars" }
	bar := a.bar(c, tree, isBar)

	g := alignSeries(c.Data)
	lines := charts.NewLine()
	lines.SetXAxis(g.labels)
	for i, s := range c.Data.Series {
		if isBar(i) {
			continue
		}
		data := make([]opts.LineData, len(g.values[i]))
		for j, v := range g.values[i] {
			data[j] = opts.LineData{Value: v}
		}
		var seriesOpts []charts.SeriesOpts
		if color := seriesColor(tree, i); color != "" {
			seriesOpts = append(seriesOpts, charts.WithLineStyleOpts(opts.LineStyle{Color: color}))
		}
		lines.AddSeries(s.Name, data, seriesOpts...)
	}
	bar.Overlap(lines)
	return a.finish(c, bar, tree)
}

// RenderScatterChart implements adapter.ScatterChartRenderer.
func (a *Adapter) RenderScatterChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	overrides := coerce.NewMap(
		"tooltip", coerce.NewMap("trigger", "item"),
		"xAxis", coerce.NewMap("type", "value"),
	)
	tree := a.canon.Build(c.Data, c.Options, overrides)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(globals(c, tree)...)
	for i, s := range c.Data.Series {
		data := make([]opts.ScatterData, 0, len(s.Points))
		for _, p := range s.Points {
			x, y := finite(p.Key.Number), finite(p.Value)
			if x == nil || y == nil {
				continue
			}
			data = append(data, opts.ScatterData{Value: []any{x, y}})
		}
		var seriesOpts []charts.SeriesOpts
		if color := seriesColor(tree, i); color != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
		}
		scatter.AddSeries(s.Name, data, seriesOpts...)
	}
	return a.finish(c, scatter, tree)
}

// simpleOverrides are the pie and gauge options: item tooltips and the
// colors list as the slice palette.
func simpleOverrides(o engine.Options) *coerce.Map {
	overrides := coerce.NewMap("tooltip", coerce.NewMap("trigger", "item"))
	if len(o.Colors) > 0 {
		colors := make([]any, len(o.Colors))
		for i, col := range o.Colors {
			colors[i] = col
		}
		overrides.Set("colors", colors)
	}
	return overrides
}

// RenderPieChart implements adapter.PieChartRenderer.
func (a *Adapter) RenderPieChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Simple(c.Options, simpleOverrides(c.Options))

	pie := charts.NewPie()
	pie.SetGlobalOptions(globals(c, tree)...)
	data := make([]opts.PieData, len(c.Data.Slices))
	for i, s := range c.Data.Slices {
		data[i] = opts.PieData{Name: s.Label, Value: finite(s.Value)}
	}
	pie.AddSeries("Value", data)
	return a.finish(c, pie, tree)
}

// RenderGauge implements adapter.GaugeRenderer.
func (a *Adapter) RenderGauge(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	tree := a.canon.Simple(c.Options, simpleOverrides(c.Options))

	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(globals(c, tree)...)
	data := make([]opts.GaugeData, len(c.Data.Slices))
	for i, s := range c.Data.Slices {
		data[i] = opts.GaugeData{Name: s.Label, Value: finite(s.Value)}
	}
	name := "Value"
	if len(c.Data.Header) > 1 {
		name = c.Data.Header[1]
	}
	gauge.AddSeries(name, data)
	return a.finish(c, gauge, tree)
}

// RenderHeatmap implements adapter.HeatmapRenderer. Columns are the X
// categories, rows the Y categories; cell values are printed on the plot.
func (a *Adapter) RenderHeatmap(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if err := requireData(c); err != nil {
		return nil, err
	}
	overrides := coerce.NewMap(
		"tooltip", coerce.NewMap("trigger", "item"),
		"xAxis", coerce.NewMap("type", "category"),
		"yAxis", coerce.NewMap("type", "category"),
	)
	tree := a.heatCanon.Build(c.Data, c.Options, overrides)

	lo, hi, ok := c.Data.Extent()
	if !ok {
		lo, hi = 0, 0
	}
	if c.Options.Min != nil {
		lo = *c.Options.Min
	}
	if c.Options.Max != nil {
		hi = *c.Options.Max
	}
	colors := heatColors
	if len(c.Options.Colors) >= 2 {
		colors = c.Options.Colors
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(globals(c, tree),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: c.Data.YCategories, Name: text(tree, "yAxis", "name")}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: colors},
		}),
	)...)
	hm.SetXAxis(c.Data.XCategories)

	for _, s := range c.Data.Series {
		data := make([]opts.HeatMapData, 0, len(s.Cells))
		for _, cell := range s.Cells {
			data = append(data, opts.HeatMapData{Value: [3]any{cell.X, cell.Y, finite(cell.Value)}})
		}
		hm.AddSeries(s.Name, data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(s.DataLabels)}))
	}
	return a.finish(c, hm, tree)
}
