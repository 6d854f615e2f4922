package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/skillgraph-backend/internal/sources/tuplefile"
)

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Replace the stored graph with the tuples in a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tuples, err := tuplefile.Load(file)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			a, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Graph.Rebuild(ctx, tuples)
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "tuple file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
