// Package arena provides an in-process stand-in for wasm32 linear memory.
//
// An Arena is a flat byte slice addressed by uint32 offsets with a first-fit
// free-list allocator. Offset 0 is never handed out, so 0 keeps its meaning
// as the null pointer. Freed blocks are zeroed and coalesced with their
// neighbours.
//
// The arena exists so the marshaling core can be exercised and used without
// a wasm runtime. Live and Counts expose allocator bookkeeping that tests use
// to prove rollback and release leave nothing behind.
package arena
