// Package gviz renders charts as Google Visualization documents: a
// DataTable literal plus a draw options tree, ready for a page script to
// hand to google.visualization.<ChartType>.draw.
package gviz

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

// Name is the backend name used by the adapter option.
const Name = "gviz"

// MediaType identifies gviz document bodies.
const MediaType = "application/vnd.chartkit.gviz+json"

//go:embed presets.yaml
var defaultPresets []byte

// Document is the rendered body of a gviz handle.
type Document struct {
	ChartType string      `json:"chartType"`
	Package   string      `json:"package"`
	Language  string      `json:"language,omitempty"`
	Data      DataTable   `json:"data"`
	Options   *coerce.Map `json:"options"`
}

// ============================================================================
// OPTIONS
// ============================================================================

// Option configures the Adapter.
type Option func(*config)

type config struct {
	language        string
	maxMarkerPoints int
	presets         []byte
	logger          *bolt.Logger
}

// WithLanguage sets the locale requested when packages load.
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithMaxMarkerPoints hides line markers when a chart has more rows than n,
// unless the chart sets its own limit.
func WithMaxMarkerPoints(n int) Option {
	return func(c *config) {
		c.maxMarkerPoints = n
	}
}

// WithPresets replaces the embedded presets document.
func WithPresets(doc []byte) Option {
	return func(c *config) {
		c.presets = doc
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

type presetFile struct {
	Defaults  *coerce.Map          `yaml:"defaults"`
	ColorAxis []string             `yaml:"colorAxis"`
	Packages  map[string]yaml.Node `yaml:"packages"`
}

// Adapter renders every chart type except Heatmap.
type Adapter struct {
	cfg    config
	logger *bolt.Logger
	loader *adapter.Loader

	colorAxis []any
	sections  map[string]yaml.Node
	canon     engine.Canonicalizer
	barCanon  engine.Canonicalizer

	mu        sync.RWMutex
	overrides map[engine.ChartType]*coerce.Map
}

// New parses the presets and returns an Adapter. Per-package overrides are
// decoded on first use.
func New(opts ...Option) (*Adapter, error) {
	cfg := config{maxMarkerPoints: math.MaxInt, presets: defaultPresets}
	for _, opt := range opts {
		opt(&cfg)
	}

	var file presetFile
	if err := yaml.Unmarshal(cfg.presets, &file); err != nil {
		return nil, fmt.Errorf("gviz presets: %w", err)
	}

	a := &Adapter{
		cfg:       cfg,
		logger:    logging.Or(cfg.logger),
		sections:  file.Packages,
		overrides: make(map[engine.ChartType]*coerce.Map),
	}
	for _, c := range file.ColorAxis {
		a.colorAxis = append(a.colorAxis, c)
	}

	a.canon = engine.Canonicalizer{
		Defaults:   file.Defaults,
		HideLegend: func(o *coerce.Map) { o.SetPath("none", "legend", "position") },
		SetMin:     func(o *coerce.Map, v float64) { o.SetPath(v, "vAxis", "viewWindow", "min") },
		SetMax:     func(o *coerce.Map, v float64) { o.SetPath(v, "vAxis", "viewWindow", "max") },
		SetStacked: func(o *coerce.Map) { o.Set("isStacked", true) },
		SetXTitle: func(o *coerce.Map, title string) {
			o.SetPath(title, "hAxis", "title")
			o.SetPath(false, "hAxis", "titleTextStyle", "italic")
		},
		SetYTitle: func(o *coerce.Map, title string) {
			o.SetPath(title, "vAxis", "title")
			o.SetPath(false, "vAxis", "titleTextStyle", "italic")
		},
	}
	// horizontal value axis, and no axis titles
	a.barCanon = a.canon.WithAxisHooks(
		func(o *coerce.Map, v float64) { o.SetPath(v, "hAxis", "viewWindow", "min") },
		func(o *coerce.Map, v float64) { o.SetPath(v, "hAxis", "viewWindow", "max") },
	)
	a.barCanon.SetXTitle = nil
	a.barCanon.SetYTitle = nil

	a.loader = adapter.NewLoader(a.loadPackage)
	return a, nil
}

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return Name }

// packageFor returns the visualization package holding chart type t.
func packageFor(t engine.ChartType) string {
	switch t {
	case engine.Gauge:
		return "gauge"
	case engine.Timeline:
		return "timeline"
	case engine.Calendar:
		return "calendar"
	default:
		return "corechart"
	}
}

func (a *Adapter) loadPackage(_ context.Context, pkg string) error {
	node, ok := a.sections[pkg]
	if !ok {
		return fmt.Errorf("unknown package %q", pkg)
	}
	var section map[string]*coerce.Map
	if err := node.Decode(&section); err != nil {
		return fmt.Errorf("load package %s: %w", pkg, err)
	}

	a.mu.Lock()
	for name, m := range section {
		a.overrides[engine.ChartType(name)] = m
	}
	a.mu.Unlock()

	logging.NewEvent(a.logger.Debug()).
		Add(logging.Adapter(Name)).
		Add(logging.Str("package", pkg)).
		Add(logging.Count(len(section))).
		Msg("package loaded")
	return nil
}

// preset returns a copy of the overrides for t.
func (a *Adapter) preset(t engine.ChartType) *coerce.Map {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.overrides[t].Clone()
}

// render waits for the chart's package, then builds and encodes the
// document.
func (a *Adapter) render(ctx context.Context, c *adapter.Chart, build func(preset *coerce.Map) (DataTable, *coerce.Map)) (*adapter.Handle, error) {
	if c.Data == nil {
		return nil, fmt.Errorf("render %s: no data", c.Type)
	}
	pkg := packageFor(c.Type)

	var h *adapter.Handle
	err := a.loader.Do(ctx, pkg, func() error {
		table, options := build(a.preset(c.Type))
		body, err := json.Marshal(Document{
			ChartType: string(c.Type),
			Package:   pkg,
			Language:  a.cfg.language,
			Data:      table,
			Options:   options,
		})
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.Type, err)
		}
		h = &adapter.Handle{MediaType: MediaType, Body: body, Options: options}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (a *Adapter) colors(opts engine.Options) []any {
	if opts.Colors == nil {
		return a.colorAxis
	}
	out := make([]any, len(opts.Colors))
	for i, c := range opts.Colors {
		out[i] = c
	}
	return out
}

// ============================================================================
// RENDERERS
// ============================================================================

// RenderLineChart implements adapter.LineChartRenderer.
func (a *Adapter) RenderLineChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		options := a.canon.Build(c.Data, c.Options, preset)
		table := seriesTable(c.Data, columnType(c.Data.KeyType))
		if c.Options.DateFormat != "" {
			options.SetPath(c.Options.DateFormat, "hAxis", "format")
		}
		limit := c.Options.MaxMarkerPoints
		if limit <= 0 {
			limit = a.cfg.maxMarkerPoints
		}
		if len(table.Rows) > limit {
			options.Set("pointSize", 0)
		}
		return table, options
	})
}

// RenderAreaChart implements adapter.AreaChartRenderer.
func (a *Adapter) RenderAreaChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		return seriesTable(c.Data, columnType(c.Data.KeyType)), a.canon.Build(c.Data, c.Options, preset)
	})
}

// RenderColumnChart implements adapter.ColumnChartRenderer.
func (a *Adapter) RenderColumnChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		return seriesTable(c.Data, TypeString), a.canon.Build(c.Data, c.Options, preset)
	})
}

// RenderBarChart implements adapter.BarChartRenderer.
func (a *Adapter) RenderBarChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		return seriesTable(c.Data, TypeString), a.barCanon.Build(c.Data, c.Options, preset)
	})
}

// RenderComboChart implements adapter.ComboChartRenderer. Each entry of the
// types option sets one series type; "column" maps to "bars".
func (a *Adapter) RenderComboChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		series := make([]any, len(c.Options.Types))
		for i, t := range c.Options.Types {
			if t == "column" {
				t = "bars"
			}
			series[i] = coerce.NewMap("type", t)
		}
		preset.Set("series", series)
		return seriesTable(c.Data, TypeString), a.barCanon.Build(c.Data, c.Options, preset)
	})
}

// RenderScatterChart implements adapter.ScatterChartRenderer.
func (a *Adapter) RenderScatterChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		return seriesTable(c.Data, TypeNumber), a.canon.Build(c.Data, c.Options, preset)
	})
}

// RenderPieChart implements adapter.PieChartRenderer.
func (a *Adapter) RenderPieChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		if c.Options.Colors != nil {
			preset.Set("colors", a.colors(c.Options))
		}
		table := sliceTable(c.Data.Slices, Column{Type: TypeString}, Column{Label: "Value", Type: TypeNumber})
		return table, a.canon.Simple(c.Options, preset)
	})
}

// RenderGeoChart implements adapter.GeoChartRenderer.
func (a *Adapter) RenderGeoChart(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		preset.SetPath(a.colors(c.Options), "colorAxis", "colors")
		label := c.Options.ValueLabel
		if label == "" {
			label = "Value"
		}
		table := sliceTable(c.Data.Slices, Column{Type: TypeString}, Column{Label: label, Type: TypeNumber})
		return table, a.canon.Simple(c.Options, preset)
	})
}

// RenderGauge implements adapter.GaugeRenderer. The money and percentage
// options format the value cells; the raw chart options are merged over
// the library options.
func (a *Adapter) RenderGauge(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		preset.SetPath(a.colors(c.Options), "colorAxis", "colors")

		header := c.Data.Header
		if len(header) < 2 {
			header = []string{"Label", "Value"}
		}
		table := sliceTable(c.Data.Slices,
			Column{Label: header[0], Type: TypeString},
			Column{Label: header[1], Type: TypeNumber})
		for i, s := range c.Data.Slices {
			cell := table.Rows[i].C[1]
			if cell == nil {
				continue
			}
			switch {
			case c.Options.Money:
				cell.F = formatMoney(s.Value)
			case c.Options.Percentage:
				cell.F = formatPercentage(s.Value)
			}
		}

		raw := c.Options.Raw.Clone()
		raw.Delete("library")
		return table, coerce.Merge(a.canon.Defaults, preset, c.Options.Library, raw)
	})
}

// RenderTimeline implements adapter.TimelineRenderer.
func (a *Adapter) RenderTimeline(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		if c.Options.Colors != nil {
			preset.Set("colors", a.colors(c.Options))
		}
		table := DataTable{
			Cols: []Column{
				{ID: "Name", Type: TypeString},
				{ID: "Start", Type: TypeDate},
				{ID: "End", Type: TypeDate},
			},
			Rows: make([]Row, len(c.Data.Spans)),
		}
		for i, s := range c.Data.Spans {
			table.Rows[i] = Row{C: []*Cell{
				{V: s.Name},
				{V: dateLiteral(s.Start, true)},
				{V: dateLiteral(s.End, true)},
			}}
		}
		return table, a.canon.Simple(c.Options, preset)
	})
}

// RenderCalendar implements adapter.CalendarRenderer.
func (a *Adapter) RenderCalendar(ctx context.Context, c *adapter.Chart) (*adapter.Handle, error) {
	return a.render(ctx, c, func(preset *coerce.Map) (DataTable, *coerce.Map) {
		table := DataTable{
			Cols: []Column{{ID: "Date", Type: TypeDate}, {ID: "Value", Type: TypeNumber}},
			Rows: make([]Row, len(c.Data.Days)),
		}
		for i, d := range c.Data.Days {
			table.Rows[i] = Row{C: []*Cell{{V: dateLiteral(d.Date, false)}, numberCell(d.Value)}}
		}
		return table, a.canon.Simple(c.Options, preset)
	})
}
