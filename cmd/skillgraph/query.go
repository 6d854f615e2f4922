package main

import (
	"github.com/spf13/cobra"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the visualization payload as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			a, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			viz, err := a.Services.Graph.QueryVisualization(ctx, limit)
			if err != nil {
				// Degraded results are still printed; the error goes to the caller.
				_ = writeJSON(cmd.OutOrStdout(), viz)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), viz)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of relationships (0 uses the configured default)")
	return cmd
}
