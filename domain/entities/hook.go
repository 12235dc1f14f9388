package entities

// Hook names a plugin lifecycle entry point. The string value is the name
// of the function the plugin module exports.
type Hook string

// Lifecycle hooks, in the order a serve session first reaches them.
const (
	HookGetDefaultConfig     Hook = "get_default_config"
	HookApplyConfig          Hook = "apply_config"
	HookRegister             Hook = "register"
	HookBeforeBuild          Hook = "before_build"
	HookBeforeServe          Hook = "before_serve"
	HookOnRebuild            Hook = "on_rebuild"
	HookOnHotReload          Hook = "on_hot_reload"
	HookOnWatchedPathsChange Hook = "on_watched_paths_change"
)

// HookFailure attributes a failed hook to one plugin.
type HookFailure struct {
	Err    error
	Plugin string
	Hook   Hook
}

// Error implements error.
func (f HookFailure) Error() string {
	return f.Plugin + ": " + string(f.Hook) + ": " + f.Err.Error()
}

// Unwrap returns the underlying plugin error.
func (f HookFailure) Unwrap() error { return f.Err }
