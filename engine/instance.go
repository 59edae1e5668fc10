package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
)

// Export names the engine looks for.
const (
	fnInitialize  = "_initialize"
	fnMalloc      = "malloc"
	fnFree        = "free"
	fnCabiRealloc = "cabi_realloc"
)

// Instance is a running module.
// It is NOT safe for concurrent use from multiple goroutines.
type Instance struct {
	module    api.Module
	memory    *Memory
	alloc     *allocator
	funcCache map[string]api.Function
	cacheMu   sync.RWMutex
}

func newInstance(mod api.Module) *Instance {
	inst := &Instance{
		module:    mod,
		funcCache: make(map[string]api.Function),
	}
	if mem := mod.Memory(); mem != nil {
		inst.memory = &Memory{mem: mem}
	}

	a := &allocator{stackBuf: make([]uint64, 4)}
	if fn := mod.ExportedFunction(fnMalloc); fn != nil {
		a.allocFn = fn
		a.freeFn = mod.ExportedFunction(fnFree)
	} else if fn := mod.ExportedFunction(fnCabiRealloc); fn != nil {
		a.allocFn = fn
		a.realloc = true
	}
	inst.alloc = a
	return inst
}

// Memory returns the instance's linear memory, or nil if it exports none.
func (i *Instance) Memory() gribpack.Memory {
	if i.memory == nil {
		return nil
	}
	return i.memory
}

// Allocator returns an allocator backed by the guest heap.
func (i *Instance) Allocator() gribpack.Allocator {
	return i.alloc
}

// SetContext sets the context used by Allocator calls into the guest.
func (i *Instance) SetContext(ctx context.Context) {
	i.alloc.setContext(ctx)
}

// MemorySize returns the current linear memory size in bytes, or 0 if no memory.
func (i *Instance) MemorySize() uint32 {
	if i.memory == nil {
		return 0
	}
	return i.memory.Size()
}

// HasExport reports whether the module exports a function called name.
func (i *Instance) HasExport(name string) bool {
	return i.function(name) != nil
}

func (i *Instance) function(name string) api.Function {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()
	if ok {
		return fn
	}

	fn = i.module.ExportedFunction(name)
	if fn != nil {
		i.cacheMu.Lock()
		i.funcCache[name] = fn
		i.cacheMu.Unlock()
	}
	return fn
}

// Call invokes an exported function with raw core values.
// A missing export is KindNotFound; a guest trap is KindTrap.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.module == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	fn := i.function(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Trap(errors.PhaseRuntime, name, err)
	}
	return results, nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	if i.module == nil {
		return nil
	}
	err := i.module.Close(ctx)
	i.module = nil
	i.memory = nil
	i.funcCache = nil
	return err
}
