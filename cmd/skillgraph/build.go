package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/skillgraph-backend/internal/services"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var req services.BuildRequest
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch GitHub repositories and Notion pages, extract skills, and rebuild the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			a, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Build.Build(ctx, req)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), res.Message())
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&req.GitHubUsername, "github-user", "", "GitHub user whose repositories are read")
	cmd.Flags().StringVar(&req.NotionDatabaseID, "notion-db", "", "Notion database id (optional)")
	_ = cmd.MarkFlagRequired("github-user")
	return cmd
}
