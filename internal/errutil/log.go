// Package errutil logs errors with the structure oops and the domain error
// kinds carry.
package errutil

import (
	"context"
	"errors"
	"log/slog"

	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/samber/oops"
)

// LogError logs err at error level. oops errors contribute their code and
// context, plugin failures the plugin name and hook.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	attrs := []any{"error", err.Error()}

	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, "context", c)
		}
	}

	if detail := derrors.ToErrorDetail(err); detail != nil && detail.Type != "internal" {
		attrs = append(attrs, "kind", detail.Type)
	}
	var hookErr *derrors.HookError
	if errors.As(err, &hookErr) {
		attrs = append(attrs, "plugin", hookErr.Plugin, "hook", string(hookErr.Hook))
	}

	logger.ErrorContext(ctx, msg, attrs...)
}
