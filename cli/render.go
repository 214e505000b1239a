package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/spf13/cobra"

	"github.com/spektr-org/chartkit"
	"github.com/spektr-org/chartkit/charts"
	"github.com/spektr-org/chartkit/config"
	"github.com/spektr-org/chartkit/logging"
)

// renderOptions holds options for the render and watch commands.
type renderOptions struct {
	outDir   string
	stdout   bool
	strict   bool
	interval time.Duration
}

func (o *renderOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.outDir, "out", "o", "", "Output directory (overrides the dashboard)")
	cmd.Flags().BoolVar(&o.stdout, "stdout", false, "Print charts to stdout instead of writing files")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Fail on missing env vars")
}

// newRenderCmd creates the render command.
func (a *App) newRenderCmd() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every chart of a dashboard once",
		Long: `Render every chart of a dashboard once.

Each chart is written to <out>/<id><ext>, the extension following the
backend's output (.html, .txt, .json, .xlsx). A chart that fails writes
<id>.error.txt instead and the command exits non-zero after trying the
rest.

Examples:
  chartkit render -c dashboard.yaml
  chartkit render -c dashboard.yaml --stdout --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.Context(), opts)
		},
	}
	opts.register(cmd)

	return cmd
}

// newWatchCmd creates the watch command.
func (a *App) newWatchCmd() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render a dashboard and keep remote charts current",
		Long: `Render a dashboard, then refetch every chart with a remote source on
each interval until interrupted. Charts with a refresh option also
refresh on their own schedule.

Examples:
  chartkit watch -c dashboard.yaml --interval 1m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().DurationVar(&opts.interval, "interval", 30*time.Second, "How often remote charts are refetched")

	return cmd
}

// start loads the dashboard and builds its charts.
func (a *App) start(ctx context.Context, opts *renderOptions) (*charts.Manager, *bolt.Logger, error) {
	d, err := a.loadDashboard(opts.strict)
	if err != nil {
		return nil, nil, err
	}
	logger := a.logger(d)

	elementFor, err := a.elements(d, opts)
	if err != nil {
		return nil, nil, err
	}

	m, err := chartkit.NewManager(d, logger)
	if err != nil {
		return nil, nil, err
	}
	err = chartkit.Build(ctx, m, d, elementFor)
	logging.NewEvent(logger.Info()).
		Add(logging.Count(len(d.Charts))).
		Add(logging.Str("output", d.Output.Dir)).
		Msg("dashboard rendered")
	return m, logger, err
}

func (a *App) elements(d *config.Dashboard, opts *renderOptions) (func(id string) charts.Element, error) {
	if opts.stdout {
		return func(id string) charts.Element {
			return charts.NewWriterElement(a.stdout, id)
		}, nil
	}
	if opts.outDir != "" {
		d.Output.Dir = opts.outDir
	}
	if err := os.MkdirAll(d.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return func(id string) charts.Element {
		return charts.NewFileElement(d.Output.Dir, id)
	}, nil
}

func (a *App) render(ctx context.Context, opts *renderOptions) error {
	m, _, err := a.start(ctx, opts)
	if m != nil {
		defer m.Close()
	}
	return err
}

func (a *App) watch(ctx context.Context, opts *renderOptions) error {
	if opts.interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", opts.interval)
	}
	m, logger, err := a.start(ctx, opts)
	if m == nil {
		return err
	}
	defer m.Close()
	if err != nil {
		logging.NewEvent(logger.Warn()).Add(logging.ErrorField(err)).Msg("initial render had failures")
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.NewEvent(logger.Info()).Msg("watch stopped")
			return nil
		case <-ticker.C:
			if err := m.UpdateAllCharts(ctx, nil); err != nil {
				logging.NewEvent(logger.Warn()).Add(logging.ErrorField(err)).Msg("refresh had failures")
			}
		}
	}
}
