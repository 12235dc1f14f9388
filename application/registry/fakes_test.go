package registry

import (
	"context"
	"sync"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/domain/value"
)

// callLog records hook calls across plugins in order.
type callLog struct {
	calls []string
	mu    sync.Mutex
}

func (c *callLog) add(plugin string, hook entities.Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, plugin+"."+string(hook))
}

func (c *callLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakePlugin struct {
	log      *callLog
	errs     map[entities.Hook]error
	on       map[entities.Hook]func()
	state    map[string][]byte
	defaults value.Value
	name     string
	config   []value.Value
	paths    [][]string
	closed   bool
}

func newFake(name string, log *callLog) *fakePlugin {
	return &fakePlugin{
		name: name,
		log:  log,
		errs: make(map[entities.Hook]error),
		on:   make(map[entities.Hook]func()),
	}
}

func (f *fakePlugin) hit(hook entities.Hook) error {
	if f.log != nil {
		f.log.add(f.name, hook)
	}
	if fn := f.on[hook]; fn != nil {
		fn()
	}
	return f.errs[hook]
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) GetDefaultConfig(context.Context) (value.Value, error) {
	if err := f.hit(entities.HookGetDefaultConfig); err != nil {
		return value.Value{}, err
	}
	return f.defaults, nil
}

func (f *fakePlugin) ApplyConfig(_ context.Context, cfg value.Value) error {
	f.config = append(f.config, cfg)
	return f.hit(entities.HookApplyConfig)
}

func (f *fakePlugin) Register(context.Context) error    { return f.hit(entities.HookRegister) }
func (f *fakePlugin) BeforeBuild(context.Context) error { return f.hit(entities.HookBeforeBuild) }
func (f *fakePlugin) BeforeServe(context.Context) error { return f.hit(entities.HookBeforeServe) }
func (f *fakePlugin) OnRebuild(context.Context) error   { return f.hit(entities.HookOnRebuild) }
func (f *fakePlugin) OnHotReload(context.Context) error { return f.hit(entities.HookOnHotReload) }

func (f *fakePlugin) OnWatchedPathsChange(_ context.Context, paths []string) error {
	f.paths = append(f.paths, paths)
	return f.hit(entities.HookOnWatchedPathsChange)
}

func (f *fakePlugin) State() map[string][]byte {
	out := make(map[string][]byte, len(f.state))
	for k, v := range f.state {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func (f *fakePlugin) Close(context.Context) error {
	f.closed = true
	return nil
}

// memStore is an in-memory LockStore. Saved states are deep copies.
type memStore struct {
	saved   *entities.LockState
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (*entities.LockState, error) {
	if m.saved == nil {
		return entities.NewLockState("Devkit.lock"), nil
	}
	return m.saved.Clone(), nil
}

func (m *memStore) Save(_ context.Context, state *entities.LockState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.saved = state.Clone()
	return nil
}
