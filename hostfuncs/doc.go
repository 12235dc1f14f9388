// Package hostfuncs implements the functions the host exposes to plugins:
// the capability surface (platform, output directory, browser refresh,
// watched paths, logging), handle operations on the value arena, and the
// per-plugin state store.
//
// Handlers are plain Go and know nothing about the WASM runtime. The
// infrastructure/wazero adapter exports them to guest modules.
package hostfuncs
