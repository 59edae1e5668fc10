// Package engine hosts core WebAssembly modules on wazero and exposes their
// linear memory and allocator to the rest of gribpack.
//
// # Architecture
//
//	Engine   - owns a wazero runtime and the WASI preview1 host module
//	Module   - a compiled core module, instantiable many times
//	Instance - a running module: Memory, Allocator and raw export calls
//
// # Allocation
//
// Instance.Allocator drives the guest's own heap. The exports are looked up
// in this order:
//
//	malloc(size) -> ptr, free(ptr)             libc style (g2c, wasi-sdk)
//	cabi_realloc(old, old_size, align, size)   component style
//
// A malloc result of 0 is reported as an allocation failure.
//
// # Reactor Modules
//
// Modules are instantiated without running _start. If the module exports
// _initialize (a WASI reactor built with -mexec-model=reactor), it is
// called once after instantiation.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use. Instance is NOT thread-safe
// and should be used by a single goroutine.
package engine
