package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spektr-org/chartkit"
)

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a dashboard file",
		Long: `Validate a dashboard file without fetching or rendering anything.

This command checks:
  - File format (YAML or JSON)
  - Chart types, ids and data sources
  - Chart options (refresh, min/max, ...)
  - Adapter names
  - Environment variable references (in strict mode)

Examples:
  chartkit validate -c dashboard.yaml
  chartkit validate -c dashboard.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.loadDashboard(strict)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			if _, err := chartkit.NewRegistry(d.Adapters, nil); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(a.stdout, "Dashboard is valid: %d charts, adapters %v\n", len(d.Charts), d.Adapters)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on missing env vars")

	return cmd
}
