// Package fieldtest provides an in-memory decode capability for tests and
// demos. It materializes predefined fields into linear memory the way a real
// decoder would: a wrapper block plus a sample buffer per decoded field.
package fieldtest

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/field"
)

// Codes mirror the g2c g2_getfld return values the fake produces.
const (
	CodeBadIndex    int64 = 3 // field number not positive
	CodeNoSuchField int64 = 6 // message holds fewer fields
)

// wrapperSize is the size of the g2c gribfield struct on wasm32.
const wrapperSize = 232

// Field describes one field the fake capability can decode.
type Field struct {
	Identification     []int64
	ProductDefinition  []int64
	DataRepresentation []int64
	GridDefinition     []int64
	Samples            []float32
	Discipline         int64
	PDTNum             int64
	DRTNum             int64
	GDTNum             int64

	// FailCode, when nonzero, is returned after a partial record has been
	// allocated, to exercise cleanup of partial state.
	FailCode int64
}

// Capability decodes a fixed list of fields, ignoring the message bytes.
type Capability struct {
	Mem    gribpack.Memory
	Alloc  gribpack.Allocator
	Fields []Field

	// Calls counts GetField invocations.
	Calls int
	// LastUnpack and LastExpand record the flags of the last call.
	LastUnpack bool
	LastExpand bool
}

// New creates a fake capability over mem.
func New(mem gribpack.Memory, alloc gribpack.Allocator, fields ...Field) *Capability {
	return &Capability{Mem: mem, Alloc: alloc, Fields: fields}
}

// GetField implements field.Capability.
func (c *Capability) GetField(_ context.Context, _ gribpack.Region, index int, unpack, expand bool) (field.Record, int64, error) {
	c.Calls++
	c.LastUnpack, c.LastExpand = unpack, expand

	if index < 1 {
		return nil, CodeBadIndex, nil
	}
	if index > len(c.Fields) {
		return nil, CodeNoSuchField, nil
	}
	spec := c.Fields[index-1]

	wrapper, err := c.Alloc.Alloc(wrapperSize, 8)
	if err != nil {
		return nil, 0, err
	}
	rec := &record{cap: c, spec: spec, wrapper: wrapper}

	if spec.FailCode != 0 {
		return rec, spec.FailCode, nil
	}

	size := uint32(len(spec.Samples)) * field.SampleSize
	ptr, err := c.Alloc.Alloc(size, 4)
	if err != nil {
		rec.Free(context.Background())
		return nil, 0, err
	}
	buf := make([]byte, size)
	for i, v := range spec.Samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if err := c.Mem.Write(ptr, buf); err != nil {
		c.Alloc.Free(ptr, size, 4)
		rec.Free(context.Background())
		return nil, 0, err
	}
	rec.samples = gribpack.Region{Ptr: ptr, Size: size}
	return rec, 0, nil
}

type record struct {
	cap     *Capability
	spec    Field
	samples gribpack.Region
	wrapper uint32
}

func (r *record) Extract(context.Context) (*field.DecodedField, error) {
	s := r.spec
	return &field.DecodedField{
		Discipline:         s.Discipline,
		PackingType:        s.DRTNum,
		Identification:     field.Section{Data: clone(s.Identification)},
		ProductDefinition:  field.Section{TemplateNum: s.PDTNum, Data: clone(s.ProductDefinition)},
		DataRepresentation: field.Section{TemplateNum: s.DRTNum, Data: clone(s.DataRepresentation)},
		GridDefinition:     field.Section{TemplateNum: s.GDTNum, Data: clone(s.GridDefinition)},
		SampleCount:        uint32(len(s.Samples)),
		Samples:            r.samples,
	}, nil
}

func (r *record) Detach(context.Context) error {
	if r.wrapper != 0 {
		r.cap.Alloc.Free(r.wrapper, wrapperSize, 8)
		r.wrapper = 0
	}
	r.samples = gribpack.Region{}
	return nil
}

func (r *record) Free(ctx context.Context) {
	if !r.samples.IsNull() {
		r.cap.Alloc.Free(r.samples.Ptr, r.samples.Size, 4)
		r.samples = gribpack.Region{}
	}
	_ = r.Detach(ctx)
}

func clone(v []int64) []int64 {
	if v == nil {
		return nil
	}
	out := make([]int64, len(v))
	copy(out, v)
	return out
}

// LatLonField returns a small template 3.0 field with nx*ny samples
// 0, 1, 2, ... and corners La1=45, Lo1=-93, La2=40, Lo2=-85.
func LatLonField(nx, ny int) Field {
	gdt := make([]int64, 19)
	gdt[7] = int64(nx)
	gdt[8] = int64(ny)
	gdt[11] = 45000000
	gdt[12] = -93000000
	gdt[14] = 40000000
	gdt[15] = -85000000

	samples := make([]float32, nx*ny)
	for i := range samples {
		samples[i] = float32(i)
	}

	return Field{
		Discipline:         0,
		Identification:     []int64{7, 0, 2, 1, 1, 2024, 6, 1, 12, 0, 0, 0, 1},
		PDTNum:             0,
		ProductDefinition:  []int64{0, 0, 2, 0, 81, 0, 0, 1, 0, 1, 0, 2, 255, 0, 0},
		DRTNum:             0,
		DataRepresentation: []int64{1142292480, 0, 2, 11, 0},
		GDTNum:             0,
		GridDefinition:     gdt,
		Samples:            samples,
	}
}
