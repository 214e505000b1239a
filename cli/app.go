// Package cli provides the chartkit command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/spf13/cobra"

	"github.com/spektr-org/chartkit/config"
	"github.com/spektr-org/chartkit/logging"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "chartkit",
		Short: "Render dashboards of charts from loosely shaped data",
		Long: `chartkit renders the charts described by a dashboard file.

Each chart takes literal data or a locator (http(s) URL, file path or
file:// URL for JSON, CSV and xlsx data), is normalized for its chart type
and drawn by the first backend in the dashboard's adapter list that
supports it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to dashboard file")
	flags.StringVar(&app.logLevel, "log-level", "", "Log level (overrides the dashboard)")
	flags.StringVar(&app.logFormat, "log-format", "", "Log format: json or console (overrides the dashboard)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newRenderCmd(),
		app.newWatchCmd(),
		app.newAdaptersCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "chartkit version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}

// loadDashboard loads the --config file.
func (a *App) loadDashboard(strict bool) (*config.Dashboard, error) {
	if a.configPath == "" {
		return nil, fmt.Errorf("dashboard file path is required (-c flag)")
	}
	return config.NewLoader(config.WithStrictEnv(strict)).LoadFile(a.configPath)
}

// logger builds the logger for d, with flag overrides applied.
func (a *App) logger(d *config.Dashboard) *bolt.Logger {
	level, format := d.Log.Level, d.Log.Format
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.logFormat != "" {
		format = a.logFormat
	}
	return logging.NewFormat(a.stderr, level, format)
}
