// Package host runs devkit plugins compiled to WebAssembly.
//
// An Executor owns the wazero runtime and the host module every plugin
// imports from. Each loaded plugin becomes a PluginInstance, which
// implements ports.Plugin by calling the guest's lifecycle exports. The
// Loader finds plugin directories on disk and reads their manifests.
package host
