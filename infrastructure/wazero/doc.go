// Package wazero exports a hostfuncs.HandlerRegistry to guest modules
// running in a wazero runtime.
//
// Every host function takes one packed i64 argument: the guest pointer in
// the upper 32 bits and the request length in the lower 32 bits. Functions
// that return a value answer with a packed pointer to a response the
// adapter wrote into memory obtained from the guest's "allocate" export.
// Void functions return nothing.
//
// # Basic Usage
//
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.CapabilityBundle(caps), hostfuncs.HandleBundle()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	err = adapter.RegisterWithRuntime(ctx, runtime, registry)
package wazero
