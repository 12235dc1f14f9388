//go:build wasip1

package pluginsdk

import (
	"fmt"

	"github.com/reglet-dev/devkit/internal/abi"
)

//go:wasmimport devkit_host get_platform
func hostGetPlatform(req uint64) uint64

//go:wasmimport devkit_host output_directory
func hostOutputDirectory(req uint64) uint64

//go:wasmimport devkit_host refresh_browser_page
func hostRefreshBrowserPage(req uint64)

//go:wasmimport devkit_host refresh_asset
func hostRefreshAsset(req uint64)

//go:wasmimport devkit_host watch_path
func hostWatchPath(req uint64)

//go:wasmimport devkit_host watched_paths
func hostWatchedPaths(req uint64) uint64

//go:wasmimport devkit_host remove_path
func hostRemovePath(req uint64) uint64

//go:wasmimport devkit_host log
func hostLog(req uint64)

//go:wasmimport devkit_host toml_new
func hostTomlNew(req uint64) uint64

//go:wasmimport devkit_host toml_get
func hostTomlGet(req uint64) uint64

//go:wasmimport devkit_host toml_set
func hostTomlSet(req uint64) uint64

//go:wasmimport devkit_host toml_clone
func hostTomlClone(req uint64) uint64

//go:wasmimport devkit_host toml_drop
func hostTomlDrop(req uint64)

//go:wasmimport devkit_host toml_field
func hostTomlField(req uint64) uint64

//go:wasmimport devkit_host toml_index
func hostTomlIndex(req uint64) uint64

//go:wasmimport devkit_host state_get
func hostStateGet(req uint64) uint64

//go:wasmimport devkit_host state_set
func hostStateSet(req uint64) uint64

//go:wasmimport devkit_host state_remove
func hostStateRemove(req uint64) uint64

var valueFuncs = map[string]func(uint64) uint64{
	"get_platform":     hostGetPlatform,
	"output_directory": hostOutputDirectory,
	"watched_paths":    hostWatchedPaths,
	"remove_path":      hostRemovePath,
	"toml_new":         hostTomlNew,
	"toml_get":         hostTomlGet,
	"toml_set":         hostTomlSet,
	"toml_clone":       hostTomlClone,
	"toml_field":       hostTomlField,
	"toml_index":       hostTomlIndex,
	"state_get":        hostStateGet,
	"state_set":        hostStateSet,
	"state_remove":     hostStateRemove,
}

var voidFuncs = map[string]func(uint64){
	"refresh_browser_page": hostRefreshBrowserPage,
	"refresh_asset":        hostRefreshAsset,
	"watch_path":           hostWatchPath,
	"toml_drop":            hostTomlDrop,
	"log":                  hostLog,
}

type wasmTransport struct{}

func defaultTransport() transport { return wasmTransport{} }

func (wasmTransport) call(name string, req []byte) ([]byte, error) {
	fn, ok := valueFuncs[name]
	if !ok {
		return nil, fmt.Errorf("pluginsdk: unknown host function %q", name)
	}
	return abi.Receive(fn(abi.Send(req))), nil
}

func (wasmTransport) notify(name string, req []byte) error {
	fn, ok := voidFuncs[name]
	if !ok {
		return fmt.Errorf("pluginsdk: unknown host function %q", name)
	}
	fn(abi.Send(req))
	return nil
}
