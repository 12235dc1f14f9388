package session

import (
	"sync/atomic"

	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/infrastructure/livereload"
)

var _ ports.LiveReloader = (*reloadGate)(nil)

// reloadGate forwards reload requests to the live reload hub while the dev
// server runs and drops them otherwise.
type reloadGate struct {
	hub atomic.Pointer[livereload.Hub]
}

func (g *reloadGate) set(h *livereload.Hub) { g.hub.Store(h) }

func (g *reloadGate) ReloadPage() {
	if h := g.hub.Load(); h != nil {
		h.ReloadPage()
	}
}

func (g *reloadGate) ReloadAsset(oldURL, newURL string) {
	if h := g.hub.Load(); h != nil {
		h.ReloadAsset(oldURL, newURL)
	}
}
