package g2c

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/field"
)

// Guest is a running g2c instance. *engine.Instance implements it.
type Guest interface {
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Memory() gribpack.Memory
	Allocator() gribpack.Allocator
}

// Export names.
const (
	FnGetField = "g2_getfld"
	FnFree     = "g2_free"
)

// Return codes of g2_getfld used by callers.
const (
	CodeBadFieldNumber int64 = 3 // ifldnum <= 0
	CodeFieldNotFound  int64 = 6 // message has fewer fields
)

// Capability decodes fields with g2_getfld.
type Capability struct {
	guest Guest
}

// New wraps a g2c guest.
func New(g Guest) *Capability {
	return &Capability{guest: g}
}

var _ field.Capability = (*Capability)(nil)

// GetField calls g2_getfld(cgrib, index, unpack, expand, &gfld).
// The message length is not passed; g2c reads section lengths itself.
func (c *Capability) GetField(ctx context.Context, msg gribpack.Region, index int, unpack, expand bool) (field.Record, int64, error) {
	mem, alloc := c.guest.Memory(), c.guest.Allocator()
	if mem == nil {
		return nil, 0, errors.NotInitialized(errors.PhaseDecode, "g2c memory")
	}

	out, err := alloc.Alloc(4, 4)
	if err != nil {
		return nil, 0, errors.AllocationFailed(errors.PhaseDecode, 4, 4, err)
	}
	defer alloc.Free(out, 4, 4)
	if err := mem.WriteU32(out, 0); err != nil {
		return nil, 0, err
	}

	res, callErr := c.guest.Call(ctx, FnGetField,
		uint64(msg.Ptr),
		uint64(int64(index)),
		flag(unpack),
		flag(expand),
		uint64(out))

	gfld, err := mem.ReadU32(out)
	if err != nil {
		return nil, 0, err
	}
	var rec field.Record
	if gfld != 0 {
		rec = &record{guest: c.guest, ptr: gfld}
	}
	if callErr != nil {
		return rec, 0, callErr
	}
	if len(res) != 1 {
		return rec, 0, errors.InvalidData(errors.PhaseDecode, nil, FnGetField+" returned no code")
	}
	return rec, int64(res[0]), nil
}

func flag(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// record is a gribfield in guest memory.
type record struct {
	guest Guest
	ptr   uint32
}

func (r *record) Extract(context.Context) (*field.DecodedField, error) {
	mem := r.guest.Memory()
	raw, err := mem.Read(r.ptr, gribfield.Size)
	if err != nil {
		return nil, err
	}
	s := structView(raw)

	f := &field.DecodedField{
		Discipline:  s.i64("discipline"),
		PackingType: s.i64("idrtnum"),
	}

	sections := []struct {
		dst                *field.Section
		tmplField          string
		ptrField, lenField string
	}{
		{&f.Identification, "", "idsect", "idsectlen"},
		{&f.ProductDefinition, "ipdtnum", "ipdtmpl", "ipdtlen"},
		{&f.DataRepresentation, "idrtnum", "idrtmpl", "idrtlen"},
		{&f.GridDefinition, "igdtnum", "igdtmpl", "igdtlen"},
	}
	for _, sec := range sections {
		data, err := readInt64s(mem, s.u32(sec.ptrField), s.i64(sec.lenField))
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Path(sec.ptrField).
				Cause(err).
				Detail("read section array").
				Build()
		}
		sec.dst.Data = data
		if sec.tmplField != "" {
			sec.dst.TemplateNum = s.i64(sec.tmplField)
		}
	}

	n := s.i64("ndpts")
	if n < 0 || n > math.MaxUint32/field.SampleSize {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path("ndpts").
			Value(n).
			Detail("sample count out of range").
			Build()
	}
	f.SampleCount = uint32(n)
	if fld := s.u32("fld"); fld != 0 {
		f.Samples = gribpack.Region{Ptr: fld, Size: f.DataSize()}
	}
	return f, nil
}

// Detach clears gfld->fld so g2_free leaves the samples alone.
func (r *record) Detach(ctx context.Context) error {
	if err := r.guest.Memory().WriteU32(r.ptr+offset("fld"), 0); err != nil {
		return err
	}
	return r.free(ctx)
}

func (r *record) Free(ctx context.Context) {
	_ = r.free(ctx)
}

func (r *record) free(ctx context.Context) error {
	if r.ptr == 0 {
		return nil
	}
	_, err := r.guest.Call(ctx, FnFree, uint64(r.ptr))
	r.ptr = 0
	return err
}

type structView []byte

func (s structView) i64(name string) int64 {
	return int64(binary.LittleEndian.Uint64(s[offset(name):]))
}

func (s structView) u32(name string) uint32 {
	return binary.LittleEndian.Uint32(s[offset(name):])
}

func readInt64s(mem gribpack.Memory, ptr uint32, n int64) ([]int64, error) {
	if n <= 0 {
		return []int64{}, nil
	}
	if ptr == 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "null array with nonzero length")
	}
	if n > math.MaxUint32/8 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "array length out of range")
	}
	raw, err := mem.Read(ptr, uint32(n)*8)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out, nil
}
