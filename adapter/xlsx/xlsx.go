// Package xlsx renders charts as Excel workbooks: the chart data on one
// sheet and a native Excel chart drawn from it.
package xlsx

import (
	"context"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

// Name is the backend name used by the adapter option.
const Name = "xlsx"

// MediaType of rendered workbooks.
const MediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DataSheet is the sheet holding chart data and the chart itself.
const DataSheet = "Data"

// Option configures the Adapter.
type Option func(*Adapter)

// WithSize sets the chart size in pixels.
func WithSize(width, height uint) Option {
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

// Adapter renders line, area, column, bar, combo, pie and scatter charts.
type Adapter struct {
	width, height uint
	logger        *bolt.Logger

	canon    engine.Canonicalizer
	barCanon engine.Canonicalizer
}

// New returns an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{width: 640, height: 400}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.Or(a.logger)

	a.canon = engine.Canonicalizer{
		Defaults:   coerce.NewMap("legend", coerce.NewMap("position", "bottom")),
		HideLegend: func(o *coerce.Map) { o.SetPath("none", "legend", "position") },
		SetMin:     func(o *coerce.Map, v float64) { o.SetPath(v, "yAxis", "minimum") },
		SetMax:     func(o *coerce.Map, v float64) { o.SetPath(v, "yAxis", "maximum") },
		SetStacked: func(o *coerce.Map) { o.Set("stacked", true) },
		SetXTitle:  func(o *coerce.Map, title string) { o.SetPath(title, "xAxis", "title") },
		SetYTitle:  func(o *coerce.Map, title string) { o.SetPath(title, "yAxis", "title") },
	}
	// Excel draws bar chart values along the horizontal axis but still
	// calls it the value (y) axis, so only the titles move.
	a.barCanon = a.canon
	a.barCanon.SetXTitle = a.canon.SetYTitle
	a.barCanon.SetYTitle = a.canon.SetXTitle
	return a
}

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return Name }

// ============================================================================
// WORKBOOK
// ============================================================================

// table is the cell layout written to the data sheet: a header row, then
// one row per category.
type table struct {
	header []string
	labels []any
	values [][]any // values[series][row], nil for a missing point
}

// seriesTable lays series out on the union of their keys, sorted by time
// for datetime keys. Number keys stay numeric so scatter charts plot them.
func seriesTable(ds *engine.Dataset) table {
	type row struct {
		key  engine.Key
		vals []any
	}
	index := make(map[string]int)
	var rows []*row
	for i, s := range ds.Series {
		for _, p := range s.Points {
			id := p.Key.String()
			pos, ok := index[id]
			if !ok {
				pos = len(rows)
				index[id] = pos
				rows = append(rows, &row{key: p.Key, vals: make([]any, len(ds.Series))})
			}
			rows[pos].vals[i] = p.Value
		}
	}
	if ds.KeyType == engine.KeyDateTime {
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].key.Time.Before(rows[b].key.Time) })
	}

	t := table{header: []string{""}, labels: make([]any, len(rows)), values: make([][]any, len(ds.Series))}
	for i, s := range ds.Series {
		t.header = append(t.header, s.Name)
		t.values[i] = make([]any, len(rows))
	}
	for r, row := range rows {
		if row.key.Type == engine.KeyNumber {
			t.labels[r] = row.key.Number
		} else {
			t.labels[r] = row.key.Format("")
		}
		for i, v := range row.vals {
			t.values[i][r] = v
		}
	}
	return t
}

func sliceTable(ds *engine.Dataset) table {
	t := table{header: []string{"", "Value"}, values: make([][]any, 1)}
	for _, s := range ds.Slices {
		t.labels = append(t.labels, s.Label)
		t.values[0] = append(t.values[0], s.Value)
	}
	return t
}

func cellName(col, row int, abs bool) string {
	name, _ := excelize.CoordinatesToCellName(col, row, abs)
	return name
}

// write stores t on the data sheet.
func (t table) write(f *excelize.File) error {
	for col, h := range t.header {
		if err := f.SetCellValue(DataSheet, cellName(col+1, 1, false), h); err != nil {
			return err
		}
	}
	for row, label := range t.labels {
		if err := f.SetCellValue(DataSheet, cellName(1, row+2, false), label); err != nil {
			return err
		}
		for s := range t.values {
			v := t.values[s][row]
			if v == nil {
				continue
			}
			if err := f.SetCellValue(DataSheet, cellName(s+2, row+2, false), v); err != nil {
				return err
			}
		}
	}
	return nil
}

// series returns chart series referencing the written cells.
func (t table) series(colors []string) []excelize.ChartSeries {
	last := len(t.labels) + 1
	out := make([]excelize.ChartSeries, len(t.values))
	for s := range t.values {
		col := s + 2
		out[s] = excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!%s", DataSheet, cellName(col, 1, true)),
			Categories: fmt.Sprintf("%s!%s:%s", DataSheet, cellName(1, 2, true), cellName(1, last, true)),
			Values:     fmt.Sprintf("%s!%s:%s", DataSheet, cellName(col, 2, true), cellName(col, last, true)),
		}
		if len(colors) > 0 {
			out[s].Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colors[s%len(colors)]}}
		}
	}
	return out
}

func richText(s string) []excelize.RichTextRun {
	if s == "" {
		return nil
	}
	return []excelize.RichTextRun{{Text: s}}
}

func axis(tree *coerce.Map, name string) excelize.ChartAxis {
	ax := excelize.ChartAxis{}
	if v, ok := tree.Path(name, "minimum"); ok {
		f := coerce.ToNumber(v)
		ax.Minimum = &f
	}
	if v, ok := tree.Path(name, "maximum"); ok {
		f := coerce.ToNumber(v)
		ax.Maximum = &f
	}
	if v, ok := tree.Path(name, "title"); ok {
		ax.Title = richText(coerce.ToText(v))
	}
	return ax
}

// chartFor maps the resolved option tree onto an excelize chart.
func (a *Adapter) chartFor(typ excelize.ChartType, t table, tree *coerce.Map, opts engine.Options) *excelize.Chart {
	title, _ := tree.Get("title").(string)
	position, _ := tree.Path("legend", "position")
	return &excelize.Chart{
		Type:      typ,
		Series:    t.series(opts.Colors),
		Title:     richText(title),
		Legend:    excelize.ChartLegend{Position: coerce.ToText(position)},
		XAxis:     axis(tree, "xAxis"),
		YAxis:     axis(tree, "yAxis"),
		Dimension: excelize.ChartDimension{Width: a.width, Height: a.height},
	}
}

// build writes t and the chart to a new workbook and returns its bytes.
func (a *Adapter) build(c *adapter.Chart, t table, tree *coerce.Map, chart *excelize.Chart, combo ...*excelize.Chart) (*adapter.Handle, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return nil, err
	}
	if err := t.write(f); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}
	anchor := cellName(len(t.header)+2, 1, false)
	if err := f.AddChart(DataSheet, anchor, chart, combo...); err != nil {
		return nil, fmt.Errorf("add %s chart: %w", c.Type, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	logging.NewEvent(a.logger.Debug()).
		Add(logging.Adapter(Name)).
		Add(logging.ChartID(c.ID)).
		Add(logging.Count(len(t.labels))).
		Msg("workbook written")
	return &adapter.Handle{MediaType: MediaType, Body: buf.Bytes(), Options: tree}, nil
}

func (a *Adapter) renderSeries(c *adapter.Chart, canon engine.Canonicalizer, plain, stacked excelize.ChartType) (*adapter.Handle, error) {
	if c.Data == nil {
		return nil, fmt.Errorf("render %s: no data", c.Type)
	}
	tree := canon.Build(c.Data, c.Options, nil)
	typ := plain
	if s, _ := tree.Get("stacked").(bool); s {
		typ = stacked
	}
	t := seriesTable(c.Data)
	return a.build(c, t, tree, a.chartFor(typ, t, tree, c.Options))
}

// ============================================================================
// RENDERERS
// ============================================================================

// RenderLineChart implements adapter.LineChartRenderer.
func (a *Adapter) RenderLineChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.renderSeries(c, a.canon, excelize.Line, excelize.Line)
}

// RenderAreaChart implements adapter.AreaChartRenderer. Areas stack by
// default.
func (a *Adapter) RenderAreaChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	canon := a.canon
	canon.Defaults = canon.Defaults.Clone().Set("stacked", true)
	return a.renderSeries(c, canon, excelize.Area, excelize.AreaStacked)
}

// RenderColumnChart implements adapter.ColumnChartRenderer.
func (a *Adapter) RenderColumnChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.renderSeries(c, a.canon, excelize.Col, excelize.ColStacked)
}

// RenderBarChart implements adapter.BarChartRenderer.
func (a *Adapter) RenderBarChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.renderSeries(c, a.barCanon, excelize.Bar, excelize.BarStacked)
}

// RenderScatterChart implements adapter.ScatterChartRenderer.
func (a *Adapter) RenderScatterChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.renderSeries(c, a.canon, excelize.Scatter, excelize.Scatter)
}

// RenderComboChart implements adapter.ComboChartRenderer. Series typed
// "column" become a column chart; the others are drawn as lines on top.
func (a *Adapter) RenderComboChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if c.Data == nil {
		return nil, fmt.Errorf("render %s: no data", c.Type)
	}
	tree := a.canon.Build(c.Data, c.Options, nil)
	t := seriesTable(c.Data)
	all := a.chartFor(excelize.Col, t, tree, c.Options)

	var bars, lines []excelize.ChartSeries
	for i, s := range all.Series {
		if i < len(c.Options.Types) && c.Options.Types[i] == "column" {
			bars = append(bars, s)
		} else {
			lines = append(lines, s)
		}
	}

	var combo []*excelize.Chart
	switch {
	case len(bars) == 0:
		all.Type = excelize.Line
	case len(lines) > 0:
		all.Series = bars
		combo = append(combo, &excelize.Chart{Type: excelize.Line, Series: lines})
	}

	return a.build(c, t, tree, all, combo...)
}

// RenderPieChart implements adapter.PieChartRenderer.
func (a *Adapter) RenderPieChart(_ context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	if c.Data == nil {
		return nil, fmt.Errorf("render %s: no data", c.Type)
	}
	tree := a.canon.Simple(c.Options, coerce.NewMap("legend", coerce.NewMap("position", "right")))
	t := sliceTable(c.Data)
	chart := a.chartFor(excelize.Pie, t, tree, engine.Options{})
	return a.build(c, t, tree, chart)
}
