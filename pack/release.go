package pack

import (
	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
)

// Release destroys the package at ptr: metadata text, then samples, then
// the record itself. Pointer 0 is a no-op that touches no memory.
//
// The record must be readable; if it is not, nothing is freed and the error
// is returned.
func Release(mem gribpack.Memory, alloc gribpack.Allocator, ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	p, err := Read(mem, ptr)
	if err != nil {
		return errors.Wrap(errors.PhaseRelease, errors.KindOutOfBounds, err, "read package record")
	}
	if p.MetadataPtr != 0 {
		alloc.Free(p.MetadataPtr, p.MetadataLen, metadataAlign)
	}
	if p.DataPtr != 0 {
		alloc.Free(p.DataPtr, p.DataSize, 4)
	}
	alloc.Free(ptr, Size, Align)
	return nil
}
