//go:build wasip1

package pluginsdk

import "log/slog"

func init() {
	slog.SetDefault(slog.New(NewLogHandler()))
}
