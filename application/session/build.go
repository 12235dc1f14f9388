package session

import (
	"context"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/infrastructure/builder"
)

// Build runs before_build on every plugin, then the build command. Plugin
// failures never stop the build. Without a build command only the hooks
// run and the result is empty.
func (s *Session) Build(ctx context.Context, release bool) (*entities.BuildResult, error) {
	s.registry.BeforeBuild(ctx)
	return s.runBuild(ctx, release)
}

func (s *Session) runBuild(ctx context.Context, release bool) (*entities.BuildResult, error) {
	if s.builder == nil {
		s.logger.InfoContext(ctx, "no build command configured, skipping build")
		return &entities.BuildResult{}, nil
	}

	opts := entities.BuildOptions{
		Platform: s.Config.PlatformValue(),
		OutDir:   s.OutDir(),
		Release:  release,
	}
	res, err := s.builder.Build(ctx, opts, func(d entities.Diagnostic) {
		s.emit(ctx, d)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "build failed", "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "build finished",
		"artifact", res.Artifact,
		"warnings", res.Warnings,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (s *Session) emit(ctx context.Context, d entities.Diagnostic) {
	switch d.Level {
	case builder.LevelError:
		s.logger.ErrorContext(ctx, d.Message, "source", "build")
	case builder.LevelWarning:
		s.logger.WarnContext(ctx, d.Message, "source", "build")
	default:
		s.logger.InfoContext(ctx, d.Message, "source", "build")
	}
}
