package pack

import (
	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/field"
)

// Builder constructs packages in linear memory.
type Builder struct {
	mem   gribpack.Memory
	alloc gribpack.Allocator
}

// NewBuilder creates a builder over mem and alloc.
func NewBuilder(mem gribpack.Memory, alloc gribpack.Allocator) *Builder {
	return &Builder{mem: mem, alloc: alloc}
}

// Build packages f with its rendered metadata text and returns the record
// pointer.
//
// The sample buffer of f is handed over without copying: data_ptr is
// f.Samples.Ptr. Build takes ownership of that buffer whether or not it
// succeeds. On failure every block of the attempt, the samples included, is
// freed before the error is returned.
func (b *Builder) Build(f *field.DecodedField, text []byte) (uint32, error) {
	owned := newAllocations()
	defer owned.release()
	owned.add(f.Samples.Ptr, f.Samples.Size, field.SampleSize)

	ptr, err := b.build(owned, f, text)
	if err != nil {
		owned.free(b.alloc)
		return 0, err
	}
	return ptr, nil
}

func (b *Builder) build(owned *allocations, f *field.DecodedField, text []byte) (uint32, error) {
	textLen := uint32(len(text))

	var metaPtr uint32
	if textLen > 0 {
		p, err := b.alloc.Alloc(textLen, metadataAlign)
		if err != nil {
			return 0, errors.AllocationFailed(errors.PhaseBuild, textLen, metadataAlign, err)
		}
		owned.add(p, textLen, metadataAlign)
		if err := b.mem.Write(p, text); err != nil {
			return 0, errors.Wrap(errors.PhaseBuild, errors.KindOutOfBounds, err, "write metadata")
		}
		metaPtr = p
	}

	rec, err := b.alloc.Alloc(Size, Align)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseBuild, Size, Align, err)
	}
	owned.add(rec, Size, Align)

	fields := [...]struct {
		off uint32
		v   uint32
	}{
		{OffMetadataPtr, metaPtr},
		{OffMetadataLen, textLen},
		{OffDataPtr, f.Samples.Ptr},
		{OffDataSize, f.DataSize()},
		{OffNumPoints, f.SampleCount},
	}
	for _, fv := range fields {
		if err := b.mem.WriteU32(rec+fv.off, fv.v); err != nil {
			return 0, errors.Wrap(errors.PhaseBuild, errors.KindOutOfBounds, err, "write package record")
		}
	}
	return rec, nil
}
