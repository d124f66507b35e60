// Package wazero provides adapters for registering the nif_host functions with the wazero runtime.
//
// This package bridges the pure Go host function implementations in hostfuncs with the wazero
// WebAssembly runtime. It handles:
//
//   - Converting between packed i64 pointer+length format and byte slices
//   - Reading request data from guest memory
//   - Allocating and writing response data to guest memory
//   - Registering handlers with the wazero host module builder
//
// # Basic Usage
//
//	// Create a handler registry bound to the host's term table
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
//	    hostfuncs.WithBundle(hostfuncs.TermBundle(envs)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// Create wazero runtime
//	runtime := wazero.NewRuntime(ctx)
//
//	// Register the handlers as the "nif_host" module
//	err = wazero.RegisterWithRuntime(ctx, runtime, registry)
//
// # Custom Handlers
//
// For handlers that don't fit the standard request/response pattern (like logging),
// use WithCustomHandler:
//
//	wazero.RegisterWithRuntime(ctx, runtime, registry,
//	    wazero.WithCustomHandler(wazero.LogMessageHandler(logger, hostfuncs.DefaultMaxRequestSize)),
//	)
package wazero
