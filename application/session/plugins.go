package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reglet-dev/devkit/domain/entities"
	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/host"
	"github.com/samber/oops"
)

// AddPlugin installs the plugin in dir into the plugins directory, unless it
// already lives there, then configures and registers it and saves the lock
// file. Its state is captured whether or not registration succeeds. When
// loading or configuring fails, a plugin directory created by the install
// is removed again.
func (s *Session) AddPlugin(ctx context.Context, dir string) (_ *PluginInfo, _ []entities.HookFailure, err error) {
	d, err := s.loader.LoadManifest(dir)
	if err != nil {
		return nil, nil, oops.Code("PLUGIN_INVALID").With("dir", dir).Wrap(err)
	}
	name := d.Manifest.Name

	inst, ok := s.plugins[name]
	if !ok {
		target := filepath.Join(s.PluginsDir(), name)
		if !sameDir(d.Dir, target) {
			if _, statErr := os.Stat(target); errors.Is(statErr, fs.ErrNotExist) {
				defer func() {
					if err != nil {
						if rmErr := os.RemoveAll(target); rmErr != nil {
							s.logger.WarnContext(ctx, "failed to remove plugin after failed add", "plugin", name, "error", rmErr)
						}
					}
				}()
			}
			if err := install(*d, target); err != nil {
				return nil, nil, oops.Code("PLUGIN_INSTALL").With("plugin", name).Wrap(err)
			}
			d = &host.Discovered{Manifest: d.Manifest, Dir: target}
		}

		inst, err = s.loader.Load(ctx, s.exec, *d, s.registry.Record(name).State)
		if err != nil {
			return nil, nil, oops.Code("PLUGIN_LOAD").With("plugin", name).Wrap(err)
		}
		if err := s.configure(ctx, inst); err != nil {
			_ = inst.Close(ctx)
			return nil, nil, err
		}
		s.plugins[name] = inst
		s.installed[name] = *d
		s.registry.MarkInstalled(name)
	}

	failures, err := s.registry.AddPlugin(ctx, inst)
	if err != nil {
		return nil, failures, err
	}
	for _, info := range s.Plugins() {
		if info.Record.Name == name {
			return &info, failures, nil
		}
	}
	return nil, failures, fmt.Errorf("plugin %s missing after add", name)
}

// configure hands a newly added plugin its configuration, seeding the
// settings file with its defaults when the section is missing.
func (s *Session) configure(ctx context.Context, inst *host.PluginInstance) error {
	name := inst.Name()
	cfg, ok, err := s.Config.PluginConfig(name)
	if err != nil {
		return &derrors.ConfigurationError{Plugin: name, Err: err}
	}
	if !ok {
		cfg, err = inst.GetDefaultConfig(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "no default configuration", "plugin", name, "error", err)
			cfg = value.Table()
		} else if err := s.Config.SeedPlugin(name, cfg); err != nil {
			s.logger.WarnContext(ctx, "failed to write default configuration", "plugin", name, "error", err)
		}
	}
	if err := inst.ApplyConfig(ctx, cfg); err != nil {
		return &derrors.ConfigurationError{Plugin: name, Err: err}
	}
	return nil
}

func sameDir(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

// install copies the manifest and module of d into target.
func install(d host.Discovered, target string) error {
	if err := os.MkdirAll(filepath.Dir(filepath.Join(target, d.Manifest.Module)), 0o755); err != nil {
		return err
	}
	if err := copyFile(filepath.Join(d.Dir, host.ManifestFile), filepath.Join(target, host.ManifestFile)); err != nil {
		return err
	}
	return copyFile(d.ModulePath(), filepath.Join(target, d.Manifest.Module))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
