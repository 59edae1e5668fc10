package pack

import (
	"sync"

	"github.com/wippyai/gribpack"
)

type allocation struct {
	ptr   uint32
	size  uint32
	align uint32
}

// allocations tracks every block a build attempt owns so a failed attempt
// can hand all of them back.
type allocations struct {
	list []allocation
}

var allocationsPool = sync.Pool{
	New: func() any {
		return &allocations{list: make([]allocation, 0, 4)}
	},
}

func newAllocations() *allocations {
	return allocationsPool.Get().(*allocations)
}

func (a *allocations) add(ptr, size, align uint32) {
	a.list = append(a.list, allocation{ptr: ptr, size: size, align: align})
}

// free releases the tracked blocks, most recent first.
func (a *allocations) free(alloc gribpack.Allocator) {
	for i := len(a.list) - 1; i >= 0; i-- {
		if b := a.list[i]; b.ptr != 0 {
			alloc.Free(b.ptr, b.size, b.align)
		}
	}
	a.list = a.list[:0]
}

// release returns the list to the pool without freeing anything.
func (a *allocations) release() {
	a.list = a.list[:0]
	allocationsPool.Put(a)
}
