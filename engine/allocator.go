package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/gribpack"
)

// allocator implements gribpack.Allocator on the guest's exports.
type allocator struct {
	allocFn    api.Function
	freeFn     api.Function
	currentCtx context.Context
	stackBuf   []uint64
	stackMutex sync.Mutex
	realloc    bool
}

func (a *allocator) setContext(ctx context.Context) {
	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()
	a.currentCtx = ctx
}

func (a *allocator) ctx() context.Context {
	if a.currentCtx == nil {
		return context.Background()
	}
	return a.currentCtx
}

func (a *allocator) Alloc(size, align uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, fmt.Errorf("module exports no allocator")
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	var stack []uint64
	if a.realloc {
		stack = a.stackBuf[:4]
		stack[0], stack[1], stack[2], stack[3] = 0, 0, uint64(align), uint64(size)
	} else {
		stack = a.stackBuf[:1]
		stack[0] = uint64(size)
	}
	if err := a.allocFn.CallWithStack(a.ctx(), stack); err != nil {
		return 0, err
	}

	ptr := uint32(stack[0])
	if ptr == 0 {
		return 0, fmt.Errorf("guest allocator returned null for %d bytes", size)
	}
	if align > 1 && ptr%align != 0 {
		Logger().Warn("guest allocation misaligned",
			zap.Uint32("ptr", ptr),
			zap.Uint32("align", align))
	}
	return ptr, nil
}

func (a *allocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	var (
		fn    api.Function
		stack []uint64
	)
	switch {
	case a.freeFn != nil:
		fn = a.freeFn
		stack = a.stackBuf[:1]
		stack[0] = uint64(ptr)
	case a.realloc:
		fn = a.allocFn
		stack = a.stackBuf[:4]
		stack[0], stack[1], stack[2], stack[3] = uint64(ptr), uint64(size), uint64(align), 0
	default:
		return
	}

	if err := fn.CallWithStack(a.ctx(), stack); err != nil {
		Logger().Warn("Free: guest call failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

var _ gribpack.Allocator = (*allocator)(nil)
