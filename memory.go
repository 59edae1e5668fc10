package gribpack

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Region is a contiguous byte range in linear memory.
// A zero Ptr is the null region.
type Region struct {
	Ptr  uint32
	Size uint32
}

// IsNull reports whether r points nowhere.
func (r Region) IsNull() bool {
	return r.Ptr == 0
}

// End returns the first offset past the region.
func (r Region) End() uint32 {
	return r.Ptr + r.Size
}
