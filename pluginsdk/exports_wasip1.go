//go:build wasip1

package pluginsdk

import (
	"encoding/json"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/internal/abi"
)

// reply releases everything pinned during the previous call and hands v to
// the host.
func reply(v any) uint64 {
	abi.FreeAll()
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"ok":false,"error":{"type":"transport","code":"encode","message":"encode response"}}`)
	}
	return abi.Send(data)
}

func receive(ptr, length uint32) []byte {
	return abi.Receive(abi.PackPtrLen(ptr, length))
}

//go:wasmexport register
func exportRegister() uint64 {
	return reply(runResult(entities.HookRegister, Plugin.Register))
}

//go:wasmexport get_default_config
func exportGetDefaultConfig() uint64 {
	return reply(runDefaultConfig())
}

//go:wasmexport apply_config
func exportApplyConfig(ptr, length uint32) uint64 {
	return reply(runApplyConfig(receive(ptr, length)))
}

//go:wasmexport before_build
func exportBeforeBuild() uint64 {
	return reply(runResult(entities.HookBeforeBuild, Plugin.BeforeBuild))
}

//go:wasmexport before_serve
func exportBeforeServe() uint64 {
	return reply(runResult(entities.HookBeforeServe, Plugin.BeforeServe))
}

//go:wasmexport on_rebuild
func exportOnRebuild() uint64 {
	return reply(runResult(entities.HookOnRebuild, Plugin.OnRebuild))
}

//go:wasmexport on_hot_reload
func exportOnHotReload() {
	runNotification(entities.HookOnHotReload, Plugin.OnHotReload)
	abi.FreeAll()
}

//go:wasmexport on_watched_paths_change
func exportOnWatchedPathsChange(ptr, length uint32) {
	runWatchedPathsChange(receive(ptr, length))
	abi.FreeAll()
}

//go:wasmexport describe
func exportDescribe() uint64 {
	return reply(runDescribe())
}
