package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/infrastructure/fswatch"
	"github.com/reglet-dev/devkit/infrastructure/livereload"
	"github.com/samber/oops"
)

// Action is what HandleChanges did about a batch of changed files.
type Action int

// Actions, from cheapest to most expensive.
const (
	ActionNone Action = iota
	ActionHotReload
	ActionRebuild
)

func (a Action) String() string {
	switch a {
	case ActionHotReload:
		return "hot-reload"
	case ActionRebuild:
		return "rebuild"
	default:
		return "none"
	}
}

const shutdownTimeout = 5 * time.Second

// Serve runs the dev server on the configured address until ctx is done.
func (s *Session) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Config.Serve.Addr)
	if err != nil {
		return oops.Code("SERVE_LISTEN").With("addr", s.Config.Serve.Addr).Wrap(err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener runs before_serve, builds once, then serves the output
// directory on ln with live reload. File changes under the watched paths
// are fed to HandleChanges until ctx is done.
func (s *Session) ServeListener(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	s.registry.BeforeServe(ctx)
	if _, err := s.runBuild(ctx, false); err != nil {
		return err
	}

	watcher, err := fswatch.New(fswatch.WithLogger(s.logger))
	if err != nil {
		return err
	}
	defer watcher.Close()
	watched := make(map[string]struct{})
	s.syncWatches(watcher, watched)

	hub := livereload.NewHub(livereload.WithLogger(s.logger))
	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(hubCtx)
	}()
	s.reloader.set(hub)
	defer func() {
		s.reloader.set(nil)
		stopHub()
		wg.Wait()
	}()

	srv := &http.Server{
		Handler:           s.handler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	s.logger.InfoContext(ctx, "dev server listening", "addr", "http://"+ln.Addr().String(), "out_dir", s.OutDir())

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown dev server: %w", err)
			}
			return nil

		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return oops.Code("SERVE_FAILED").Wrap(err)

		case batch, ok := <-watcher.Changes():
			if !ok {
				return nil
			}
			if _, err := s.HandleChanges(ctx, batch); err != nil {
				s.logger.WarnContext(ctx, "change handling failed", "error", err)
			}
			s.syncWatches(watcher, watched)
		}
	}
}

// HandleChanges decides what a batch of changed files requires. Files under
// the output directory and files nobody watches are ignored. When every
// relevant file matches a hot reload pattern the plugins get on_hot_reload
// and the page reloads; otherwise the plugins get on_rebuild, the build
// command runs and the page reloads once it succeeds.
func (s *Session) HandleChanges(ctx context.Context, changed []string) (Action, error) {
	hot, err := compileGlobs(s.Config.Serve.HotReload)
	if err != nil {
		return ActionNone, err
	}

	var relevant []string
	for _, p := range changed {
		rel, ok := s.relative(p)
		if !ok || s.underOutDir(rel) {
			continue
		}
		if s.paths.Matches(rel) || s.underSourceRoot(rel) || matchAny(hot, rel) {
			relevant = append(relevant, rel)
		}
	}
	if len(relevant) == 0 {
		return ActionNone, nil
	}

	if allMatch(hot, relevant) {
		s.logger.InfoContext(ctx, "hot reloading", "files", relevant)
		s.registry.OnHotReload(ctx)
		s.reloader.ReloadPage()
		return ActionHotReload, nil
	}

	s.logger.InfoContext(ctx, "rebuilding", "files", relevant)
	s.registry.OnRebuild(ctx)
	if _, err := s.runBuild(ctx, false); err != nil {
		return ActionRebuild, err
	}
	s.reloader.ReloadPage()
	return ActionRebuild, nil
}

// syncWatches points the file watcher at the configured source roots and
// the current watched-path set.
func (s *Session) syncWatches(w ports.PathWatcher, watched map[string]struct{}) {
	want := make(map[string]struct{})
	for _, p := range slices.Concat(s.Config.Serve.Watch, s.paths.Paths()) {
		want[s.abs(filepath.FromSlash(staticPrefix(p)))] = struct{}{}
	}

	for p := range watched {
		if _, ok := want[p]; ok {
			continue
		}
		if err := w.Remove(p); err != nil {
			s.logger.Debug("failed to stop watching", "path", p, "error", err)
		}
		delete(watched, p)
	}
	for p := range want {
		if _, ok := watched[p]; ok {
			continue
		}
		if err := w.Add(p); err != nil {
			s.logger.Debug("cannot watch path", "path", p, "error", err)
			continue
		}
		watched[p] = struct{}{}
	}
}

// handler serves the output directory with the live reload endpoints and
// injects the client script into HTML pages.
func (s *Session) handler(hub *livereload.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(livereload.SocketPath, hub)
	mux.Handle(livereload.ScriptPath, livereload.ScriptHandler())
	mux.Handle("/", injectScript(s.OutDir(), http.FileServer(http.Dir(s.OutDir()))))
	return mux
}

var scriptTag = []byte(`<script src="` + livereload.ScriptPath + `"></script>`)

func injectScript(dir string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if path.Ext(name) != ".html" || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		page, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if i := bytes.LastIndex(page, []byte("</body>")); i >= 0 {
			page = slices.Concat(page[:i], scriptTag, page[i:])
		} else {
			page = append(page, scriptTag...)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(page)
	})
}

// relative returns p relative to the project root with '/' separators.
func (s *Session) relative(p string) (string, bool) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p)), true
	}
	rel, err := filepath.Rel(s.root, p)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (s *Session) underOutDir(rel string) bool {
	out, ok := s.relative(s.OutDir())
	return ok && under(rel, out)
}

func (s *Session) underSourceRoot(rel string) bool {
	for _, root := range s.Config.Serve.Watch {
		if under(rel, path.Clean(filepath.ToSlash(root))) {
			return true
		}
	}
	return false
}

func under(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// staticPrefix strips the glob part of a watched path so that the
// directory holding the matches can be watched.
func staticPrefix(p string) string {
	i := strings.IndexAny(p, "*?[{")
	if i < 0 {
		return p
	}
	return path.Dir(p[:i] + "x")
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("serve.hot_reload %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, p string) bool {
	for _, g := range globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}

func allMatch(globs []glob.Glob, paths []string) bool {
	for _, p := range paths {
		if !matchAny(globs, p) {
			return false
		}
	}
	return true
}
