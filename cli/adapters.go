package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/chartkit"
	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/logging"
)

// newAdaptersCmd creates the adapters command.
func (a *App) newAdaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List the built-in backends and the chart types they draw",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range chartkit.AdapterNames {
				ad, err := chartkit.NewAdapter(name, logging.Discard())
				if err != nil {
					return err
				}
				caps := adapter.Capabilities(ad)
				types := make([]string, len(caps))
				for i, t := range caps {
					types[i] = string(t)
				}
				fmt.Fprintf(a.stdout, "%-8s %s\n", name, strings.Join(types, ", "))
			}
			return nil
		},
	}
}
