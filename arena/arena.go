package arena

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/gribpack/layout"
)

// base is the first allocatable offset; offset 0 stays the null pointer.
const base = 8

// DefaultSize is sixteen 64KiB wasm pages.
const DefaultSize = 16 * 65536

// Arena is an in-process linear memory with a first-fit allocator.
// It implements gribpack.Memory, gribpack.MemorySizer and gribpack.Allocator
// so the marshaler can run without a wasm instance.
type Arena struct {
	mem    []byte
	live   map[uint32]uint32
	free   []span
	top    uint32
	allocs int
	frees  int
	mu     sync.Mutex
}

type span struct {
	ptr  uint32
	size uint32
}

// New creates an arena of the given size in bytes.
func New(size uint32) *Arena {
	if size < base {
		size = base
	}
	return &Arena{
		mem:  make([]byte, size),
		live: make(map[uint32]uint32),
		top:  base,
	}
}

// Size returns the arena size in bytes.
func (a *Arena) Size() uint32 {
	return uint32(len(a.mem))
}

// Alloc reserves size bytes aligned to align.
// A zero-size request still returns a unique non-null pointer.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}

	for i, s := range a.free {
		ptr := layout.AlignTo(s.ptr, align)
		if ptr+size > s.ptr+s.size || ptr+size < ptr {
			continue
		}
		a.free = append(a.free[:i], a.free[i+1:]...)
		if ptr > s.ptr {
			a.insertFree(span{ptr: s.ptr, size: ptr - s.ptr})
		}
		if rest := s.ptr + s.size - (ptr + size); rest > 0 {
			a.insertFree(span{ptr: ptr + size, size: rest})
		}
		a.live[ptr] = size
		a.allocs++
		return ptr, nil
	}

	ptr := layout.AlignTo(a.top, align)
	end := uint64(ptr) + uint64(size)
	if end > uint64(len(a.mem)) {
		return 0, fmt.Errorf("arena exhausted: need %d bytes at %d, size %d", size, ptr, len(a.mem))
	}
	if ptr > a.top {
		a.insertFree(span{ptr: a.top, size: ptr - a.top})
	}
	a.top = uint32(end)
	a.live[ptr] = size
	a.allocs++
	return ptr, nil
}

// Free releases a block. The size and align hints are ignored; the arena
// remembers block sizes like malloc does. Unknown pointers are ignored.
func (a *Arena) Free(ptr, _, _ uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.live[ptr]
	if !ok {
		return
	}
	delete(a.live, ptr)
	a.frees++
	clear(a.mem[ptr : ptr+size])
	a.insertFree(span{ptr: ptr, size: size})
}

// insertFree adds s to the sorted free list and merges neighbours.
func (a *Arena) insertFree(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].ptr > s.ptr })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	if i+1 < len(a.free) && a.free[i].ptr+a.free[i].size == a.free[i+1].ptr {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].ptr+a.free[i-1].size == a.free[i].ptr {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// Live returns the number of blocks currently allocated.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// InUse returns the number of bytes currently allocated.
func (a *Arena) InUse() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n uint32
	for _, size := range a.live {
		n += size
	}
	return n
}

// BlockSize returns the size of the live block at ptr.
func (a *Arena) BlockSize(ptr uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	size, ok := a.live[ptr]
	return size, ok
}

// Counts returns the total number of allocations and frees performed.
func (a *Arena) Counts() (allocs, frees int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs, a.frees
}

func (a *Arena) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(a.mem)) {
		return fmt.Errorf("memory access out of bounds: offset=%d, length=%d", offset, length)
	}
	return nil
}

// Read returns a view of length bytes at offset. The view aliases the arena.
func (a *Arena) Read(offset uint32, length uint32) ([]byte, error) {
	if err := a.check(offset, length); err != nil {
		return nil, err
	}
	return a.mem[offset : offset+length : offset+length], nil
}

// Write copies data into the arena at offset.
func (a *Arena) Write(offset uint32, data []byte) error {
	if err := a.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(a.mem[offset:], data)
	return nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (a *Arena) ReadU32(offset uint32) (uint32, error) {
	if err := a.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(a.mem[offset:]), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (a *Arena) ReadU64(offset uint32) (uint64, error) {
	if err := a.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(a.mem[offset:]), nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (a *Arena) WriteU32(offset uint32, value uint32) error {
	if err := a.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.mem[offset:], value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (a *Arena) WriteU64(offset uint32, value uint64) error {
	if err := a.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.mem[offset:], value)
	return nil
}
