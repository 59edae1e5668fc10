package marshal

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/field"
	"github.com/wippyai/gribpack/geometry"
	"github.com/wippyai/gribpack/metadata"
	"github.com/wippyai/gribpack/pack"
)

// Options configures metadata rendering.
type Options struct {
	// Capacity bounds the metadata document. Zero means metadata.DefaultCapacity.
	Capacity int
	// Policy decides whether an overflowing document fails the call.
	Policy metadata.Policy
}

// DefaultOptions returns the defaults: 4096 bytes, fail on overflow.
func DefaultOptions() *Options {
	return &Options{Capacity: metadata.DefaultCapacity, Policy: metadata.PolicyFail}
}

// Processor packages decoded fields in one linear memory.
type Processor struct {
	mem        gribpack.Memory
	alloc      gribpack.Allocator
	decoder    *field.Decoder
	builder    *pack.Builder
	serializer metadata.Serializer
}

// New creates a processor. opts may be nil.
func New(mem gribpack.Memory, alloc gribpack.Allocator, c field.Capability, opts *Options) *Processor {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Processor{
		mem:        mem,
		alloc:      alloc,
		decoder:    field.NewDecoder(c),
		builder:    pack.NewBuilder(mem, alloc),
		serializer: metadata.Serializer{Capacity: opts.Capacity, Policy: opts.Policy},
	}
}

// Memory returns the linear memory packages are built in.
func (p *Processor) Memory() gribpack.Memory {
	return p.mem
}

// Allocator returns the allocator packages are built with.
func (p *Processor) Allocator() gribpack.Allocator {
	return p.alloc
}

// ProcessField decodes field index (1-based) of the message at
// [bufPtr, bufPtr+bufLen) and returns a pointer to a new package.
//
// On any failure it returns 0 together with the error and leaves nothing
// allocated. A successful package must be released exactly once with
// ReleasePackage.
func (p *Processor) ProcessField(ctx context.Context, bufPtr, bufLen uint32, index int) (uint32, error) {
	log := Logger()

	f, err := p.decoder.Decode(ctx, gribpack.Region{Ptr: bufPtr, Size: bufLen}, index)
	if err != nil {
		log.Debug("decode failed", zap.Int("field", index), zap.Error(err))
		return 0, err
	}

	g := geometry.Resolve(f.GridDefinition.TemplateNum, f.GridDefinition.Data)
	if !g.Known() {
		log.Debug("grid geometry unknown",
			zap.Int("field", index),
			zap.Int64("template", f.GridDefinition.TemplateNum),
			zap.Int("len", f.GridDefinition.Len()))
	}

	res, err := p.serializer.Serialize(f, g)
	if err != nil {
		if !f.Samples.IsNull() {
			p.alloc.Free(f.Samples.Ptr, f.Samples.Size, field.SampleSize)
		}
		log.Warn("metadata overflow", zap.Int("field", index), zap.Error(err))
		return 0, err
	}
	if res.Truncated() {
		log.Warn("metadata truncated",
			zap.Int("field", index),
			zap.Int("dropped", res.Dropped),
			zap.Int("len", len(res.Text)))
	}

	ptr, err := p.builder.Build(f, res.Text)
	if err != nil {
		log.Warn("package build failed", zap.Int("field", index), zap.Error(err))
		return 0, err
	}

	log.Debug("field packaged",
		zap.Int("field", index),
		zap.Uint32("package", ptr),
		zap.Uint32("points", f.SampleCount),
		zap.Int("metadata_len", len(res.Text)))
	return ptr, nil
}

// ReleasePackage destroys a package returned by ProcessField. Pointer 0 is a
// no-op. Releasing the same package twice is undefined.
func (p *Processor) ReleasePackage(_ context.Context, ptr uint32) error {
	if err := pack.Release(p.mem, p.alloc, ptr); err != nil {
		Logger().Warn("release failed", zap.Uint32("package", ptr), zap.Error(err))
		return err
	}
	return nil
}
