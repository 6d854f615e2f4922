package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/skillgraph-backend/internal/app"
)

var version = "dev"

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "skillgraph",
		Short:         "Builds and serves a graph of entities and the skills they exhibit.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./config.yaml)")
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	root.AddCommand(
		newServeCmd(opts),
		newRebuildCmd(opts),
		newQueryCmd(opts),
		newBuildCmd(opts),
	)
	return root
}

// loadApp builds the full process graph from config. Callers own Close.
func loadApp(ctx context.Context, opts *rootOptions) (*app.App, error) {
	cfg, err := app.LoadConfig(opts.configFile)
	if err != nil {
		return nil, err
	}
	if cfg.App.Version == "" || cfg.App.Version == "dev" {
		cfg.App.Version = version
	}
	return app.New(ctx, cfg)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
