// Package chartkit turns loosely shaped chart data into rendered charts.
//
// Usage:
//
//	reg, _ := chartkit.NewRegistry([]string{"echarts", "term"}, nil)
//	m := charts.NewManager(charts.WithRegistry(reg))
//	defer m.Close()
//
//	_, err := m.LineChart(ctx, charts.NewMemoryElement("visits"),
//	    charts.Literal(map[string]any{"2021-01-01": 3, "2021-01-02": 5}),
//	    coerce.NewMap("ytitle", "Visits"),
//	)
//
// Data is normalized by the engine package into series of typed points,
// options are mapped onto each backend's own option tree, and the chart is
// dispatched to the first registered backend that can draw its type.
// Dashboards (config package) describe many charts in one YAML file.
package chartkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/adapter/echarts"
	"github.com/spektr-org/chartkit/adapter/gviz"
	"github.com/spektr-org/chartkit/adapter/term"
	"github.com/spektr-org/chartkit/adapter/xlsx"
	"github.com/spektr-org/chartkit/charts"
	"github.com/spektr-org/chartkit/config"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/source"
)

// ErrUnknownAdapter is returned for backend names with no implementation.
var ErrUnknownAdapter = errors.New("unknown adapter")

// AdapterNames lists the built-in backends.
var AdapterNames = []string{gviz.Name, echarts.Name, term.Name, xlsx.Name}

// Grouper aggregates typed records into chart data. See engine.Grouper.
type Grouper[T any] = engine.Grouper[T]

// NewGrouper creates a grouper for T that sums measures.
func NewGrouper[T any]() *Grouper[T] {
	return engine.NewGrouper[T]()
}

// NewAdapter builds the built-in backend called name.
func NewAdapter(name string, logger *bolt.Logger) (adapter.Adapter, error) {
	switch name {
	case gviz.Name:
		return gviz.New(gviz.WithLogger(logger))
	case echarts.Name:
		return echarts.New(echarts.WithLogger(logger)), nil
	case term.Name:
		return term.New(term.WithLogger(logger)), nil
	case xlsx.Name:
		return xlsx.New(xlsx.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
}

// NewRegistry registers the named backends in priority order. No names
// means every built-in backend in the default order.
func NewRegistry(names []string, logger *bolt.Logger) (*adapter.Registry, error) {
	if len(names) == 0 {
		names = config.DefaultAdapters
	}
	reg, err := adapter.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		a, err := NewAdapter(name, logger)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(a); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// NewManager builds a chart manager set up as the dashboard describes.
func NewManager(d *config.Dashboard, logger *bolt.Logger) (*charts.Manager, error) {
	reg, err := NewRegistry(d.Adapters, logger)
	if err != nil {
		return nil, err
	}
	fetcher := &source.Router{
		HTTP: source.NewHTTPFetcher(
			source.WithHTTPConfig(source.HTTPConfig{
				Timeout:          d.Fetch.Timeout,
				BreakerThreshold: d.Fetch.BreakerThreshold,
				BreakerTimeout:   d.Fetch.BreakerTimeout,
			}),
			source.WithHTTPLogger(logger),
		),
		File: &source.FileFetcher{Root: d.Fetch.Root},
	}
	return charts.NewManager(
		charts.WithRegistry(reg),
		charts.WithFetcher(fetcher),
		charts.WithLogger(logger),
	), nil
}

// Build constructs every chart of the dashboard in order, placing each in
// the element returned by elementFor. Every chart is attempted; failures
// are joined.
func Build(ctx context.Context, m *charts.Manager, d *config.Dashboard, elementFor func(id string) charts.Element) error {
	var errs []error
	for i := range d.Charts {
		c := &d.Charts[i]
		t, err := c.ChartType()
		if err != nil {
			errs = append(errs, fmt.Errorf("chart %s: %w", c.ID, err))
			continue
		}

		src := charts.Remote(c.URL)
		if c.URL == "" {
			v, err := c.Value()
			if err != nil {
				errs = append(errs, fmt.Errorf("chart %s: %w", c.ID, err))
				continue
			}
			src = charts.Literal(v)
		}

		if _, err := m.NewChart(ctx, t, elementFor(c.ID), src, c.Options); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
