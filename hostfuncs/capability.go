package hostfuncs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/wireformat"
)

// Capabilities is the session state behind the capability surface.
type Capabilities struct {
	Reloader  ports.LiveReloader
	Paths     ports.PathSet
	Logger    *slog.Logger
	Platform  entities.Platform
	OutputDir string
}

// Empty is the request of argument-less host functions.
type Empty struct{}

// CapabilityBundle returns the capability surface: get_platform,
// output_directory, refresh_browser_page, refresh_asset, watch_path,
// watched_paths, remove_path and log.
func CapabilityBundle(c Capabilities) Bundle {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return Bundle{
		"get_platform":         jsonFunc(c.GetPlatform),
		"output_directory":     jsonFunc(c.OutputDirectory),
		"refresh_browser_page": voidFunc(c.RefreshBrowserPage),
		"refresh_asset":        voidFunc(c.RefreshAsset),
		"watch_path":           voidFunc(c.WatchPath),
		"watched_paths":        jsonFunc(c.WatchedPaths),
		"remove_path":          jsonFunc(c.RemovePath),
		"log":                  voidFunc(c.Log),
	}
}

// GetPlatform reports the target surface.
func (c Capabilities) GetPlatform(_ context.Context, _ Empty) wireformat.PlatformWire {
	return wireformat.PlatformWire{Platform: string(c.Platform)}
}

// OutputDirectory reports the current build output root.
func (c Capabilities) OutputDirectory(_ context.Context, _ Empty) wireformat.OutputDirectoryWire {
	return wireformat.OutputDirectoryWire{Path: c.OutputDir}
}

// RefreshBrowserPage asks every connected live client to reload.
func (c Capabilities) RefreshBrowserPage(_ context.Context, _ Empty) {
	if c.Reloader != nil {
		c.Reloader.ReloadPage()
	}
}

// RefreshAsset asks connected clients to swap references to one asset.
func (c Capabilities) RefreshAsset(_ context.Context, req wireformat.AssetRefreshWire) {
	if c.Reloader != nil {
		c.Reloader.ReloadAsset(req.OldURL, req.NewURL)
	}
}

// WatchPath adds a path to the watched set. Adding a present path is a no-op.
func (c Capabilities) WatchPath(ctx context.Context, req wireformat.PathWire) {
	if req.Path == "" {
		return
	}
	if c.Paths.Watch(req.Path) {
		c.Logger.DebugContext(ctx, "watching path", "path", req.Path, "plugin", pluginName(ctx))
	}
}

// WatchedPaths returns a snapshot of the watched set.
func (c Capabilities) WatchedPaths(_ context.Context, _ Empty) wireformat.PathsWire {
	paths := c.Paths.Paths()
	if paths == nil {
		paths = []string{}
	}
	return wireformat.PathsWire{Paths: paths}
}

// RemovePath removes a path from the watched set. An absent path is a
// failure result and leaves the set unchanged.
func (c Capabilities) RemovePath(_ context.Context, req wireformat.PathWire) wireformat.ResultWire {
	if !c.Paths.Remove(req.Path) {
		return failure("not_found", CodeNotFound, fmt.Errorf("path %q is not watched", req.Path))
	}
	return wireformat.ResultWire{OK: true}
}

// Log forwards a plugin diagnostic line to the host logger.
func (c Capabilities) Log(ctx context.Context, req wireformat.LogWire) {
	level := slog.LevelInfo
	if req.Level != "" {
		if err := level.UnmarshalText([]byte(req.Level)); err != nil {
			level = slog.LevelInfo
		}
	}
	args := make([]any, 0, 2*len(req.Attrs)+2)
	args = append(args, "plugin", pluginName(ctx))
	for _, a := range req.Attrs {
		if a.Key == "" || a.Key == "plugin" {
			continue
		}
		args = append(args, a.Key, a.Value)
	}
	c.Logger.Log(ctx, level, req.Message, args...)
}

func pluginName(ctx context.Context) string {
	if scope, ok := ScopeFrom(ctx); ok {
		return scope.Plugin
	}
	return ""
}
