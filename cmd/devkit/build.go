package main

import (
	"time"

	"github.com/spf13/cobra"
)

type buildConfig struct {
	release bool
}

func newBuildCmd(root *rootConfig) *cobra.Command {
	cfg := &buildConfig{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project",
		Long: `Load the project's plugins, register any new ones, run before_build on
each and then the configured build command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, root, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.release, "release", false, "build with optimizations")

	return cmd
}

func runBuild(cmd *cobra.Command, root *rootConfig, cfg *buildConfig) (err error) {
	ctx := cmd.Context()
	s, logger, err := root.open(cmd)
	if err != nil {
		return err
	}
	defer closeSession(ctx, s, logger, &err)

	failures, err := s.Initialize(ctx)
	if err != nil {
		return err
	}
	reportFailures(ctx, logger, failures)

	res, err := s.Build(ctx, cfg.release)
	if err != nil {
		return err
	}
	if res.Artifact != "" {
		cmd.Printf("built %s in %s (%d warnings)\n", res.Artifact, res.Elapsed.Round(time.Millisecond), res.Warnings)
	}
	return nil
}
