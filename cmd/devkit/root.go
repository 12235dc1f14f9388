package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/reglet-dev/devkit/application/config"
	"github.com/reglet-dev/devkit/application/session"
	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/internal/errutil"
	"github.com/reglet-dev/devkit/internal/logging"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

// rootConfig holds the flags shared by every subcommand.
type rootConfig struct {
	project    string
	configFile string
}

// newDefaultLogger is the logger used until settings are loaded.
func newDefaultLogger(cmd *cobra.Command) *slog.Logger {
	return logging.Setup(logging.Options{Service: "devkit", Version: version}, cmd.ErrOrStderr())
}

// NewRootCmd creates the root command for the devkit CLI.
func NewRootCmd() *cobra.Command {
	cfg := &rootConfig{}

	cmd := &cobra.Command{
		Use:   "devkit",
		Short: "Build and serve application projects",
		Long: `devkit builds a project for the web or desktop, serves it with live
reload and runs the project's WebAssembly plugins at each step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(newDefaultLogger(cmd))
		},
	}

	cmd.PersistentFlags().StringVarP(&cfg.project, "project", "C", ".", "project root directory")
	cmd.PersistentFlags().StringVar(&cfg.configFile, "config", "", "settings file (default: devkit.yaml at the project root)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newBuildCmd(cfg))
	cmd.AddCommand(newServeCmd(cfg))
	cmd.AddCommand(newPluginCmd(cfg))
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// settingsPath resolves the settings file for the project.
func (c *rootConfig) settingsPath() string {
	if c.configFile != "" {
		return c.configFile
	}
	return filepath.Join(c.project, config.DefaultFile)
}

// load reads the settings and installs the logger they describe as the
// default logger.
func (c *rootConfig) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := c.settingsPath()
	settings, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	logger := logging.Setup(logging.Options{
		Service: "devkit",
		Version: version,
		Format:  settings.Log.Format,
		Level:   settings.Log.Level,
	}, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return settings, logger, nil
}

// open loads the settings and opens a session over the project.
func (c *rootConfig) open(cmd *cobra.Command, opts ...session.Option) (*session.Session, *slog.Logger, error) {
	settings, logger, err := c.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]session.Option{
		session.WithConfig(settings),
		session.WithLogger(logger),
		session.WithTracer(otel.Tracer("github.com/reglet-dev/devkit")),
	}, opts...)

	s, err := session.Open(cmd.Context(), c.project, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, logger, nil
}

// closeSession saves the lock file and releases plugins. A close failure
// becomes the command's error when it had none.
func closeSession(ctx context.Context, s *session.Session, logger *slog.Logger, errp *error) {
	if err := s.Close(context.WithoutCancel(ctx)); err != nil {
		if *errp == nil {
			*errp = err
			return
		}
		errutil.LogError(ctx, logger, "failed to close session", err)
	}
}

// reportFailures logs isolated plugin failures. They never fail a command.
func reportFailures(ctx context.Context, logger *slog.Logger, failures []entities.HookFailure) {
	for _, f := range failures {
		errutil.LogError(ctx, logger, "plugin hook failed", f)
	}
}
