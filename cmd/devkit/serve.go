package main

import (
	"context"
	"time"

	"github.com/reglet-dev/devkit/application/session"
	"github.com/reglet-dev/devkit/internal/errutil"
	"github.com/reglet-dev/devkit/internal/observability"
	"github.com/spf13/cobra"
)

type serveConfig struct {
	metricsAddr string
}

func newServeCmd(root *rootConfig) *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project with live reload",
		Long: `Build the project, serve the output directory and rebuild or hot reload
as watched files change. Connected browsers reload automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root, cfg)
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8080", "dev server listen address")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "metrics HTTP address (empty = disabled)")

	return cmd
}

func runServe(cmd *cobra.Command, root *rootConfig, cfg *serveConfig) (err error) {
	ctx := cmd.Context()

	var opts []session.Option
	var metrics *observability.Server
	if cfg.metricsAddr != "" {
		metrics = observability.NewServer(cfg.metricsAddr)
		opts = append(opts, session.WithRegisterer(metrics.Registry()))
	}

	s, logger, err := root.open(cmd, opts...)
	if err != nil {
		return err
	}
	defer closeSession(ctx, s, logger, &err)

	if metrics != nil {
		if _, err := metrics.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if stopErr := metrics.Stop(stopCtx); stopErr != nil {
				errutil.LogError(ctx, logger, "failed to stop metrics server", stopErr)
			}
		}()
	}

	failures, err := s.Initialize(ctx)
	if err != nil {
		return err
	}
	reportFailures(ctx, logger, failures)

	return s.Serve(ctx)
}
