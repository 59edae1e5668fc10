package pack_test

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/arena"
	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/field"
	"github.com/wippyai/gribpack/layout"
	"github.com/wippyai/gribpack/pack"
)

// recorder wraps an allocator, logs every call and can fail the nth Alloc.
type recorder struct {
	inner  gribpack.Allocator
	log    []string
	failAt int
	n      int
}

func (r *recorder) Alloc(size, align uint32) (uint32, error) {
	r.n++
	if r.failAt > 0 && r.n == r.failAt {
		r.log = append(r.log, fmt.Sprintf("alloc %d fail", size))
		return 0, fmt.Errorf("out of memory")
	}
	ptr, err := r.inner.Alloc(size, align)
	r.log = append(r.log, fmt.Sprintf("alloc %d", size))
	return ptr, err
}

func (r *recorder) Free(ptr, size, align uint32) {
	r.log = append(r.log, fmt.Sprintf("free %d", ptr))
	r.inner.Free(ptr, size, align)
}

func samples(t *testing.T, a *arena.Arena, values ...float32) *field.DecodedField {
	t.Helper()
	size := uint32(len(values)) * field.SampleSize
	ptr, err := a.Alloc(size, 4)
	if err != nil {
		t.Fatalf("alloc samples: %v", err)
	}
	buf := make([]byte, size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if err := a.Write(ptr, buf); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	return &field.DecodedField{
		Samples:     gribpack.Region{Ptr: ptr, Size: size},
		SampleCount: uint32(len(values)),
	}
}

func TestLayout(t *testing.T) {
	info := layout.NewCalculator().Calculate(pack.Type)

	if info.Size != pack.Size || info.Align != pack.Align {
		t.Errorf("size/align = %d/%d, want %d/%d", info.Size, info.Align, pack.Size, pack.Align)
	}

	want := map[string]uint32{
		"metadata-ptr": pack.OffMetadataPtr,
		"metadata-len": pack.OffMetadataLen,
		"data-ptr":     pack.OffDataPtr,
		"data-size":    pack.OffDataSize,
		"num-points":   pack.OffNumPoints,
	}
	if diff := cmp.Diff(want, info.FieldOffs); diff != "" {
		t.Errorf("offsets mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RecordBytes(t *testing.T) {
	a := arena.New(arena.DefaultSize)
	f := samples(t, a, 1.5, -2, 3)
	text := []byte(`{"k":1}`)

	ptr, err := pack.NewBuilder(a, a).Build(f, text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	raw, err := a.Read(ptr, pack.Size)
	if err != nil {
		t.Fatal(err)
	}
	metaPtr := binary.LittleEndian.Uint32(raw[0:])
	if metaPtr == 0 {
		t.Fatal("metadata_ptr is null")
	}

	want := make([]byte, pack.Size)
	binary.LittleEndian.PutUint32(want[0:], metaPtr)
	binary.LittleEndian.PutUint32(want[4:], uint32(len(text)))
	binary.LittleEndian.PutUint32(want[8:], f.Samples.Ptr)
	binary.LittleEndian.PutUint32(want[12:], 12)
	binary.LittleEndian.PutUint32(want[16:], 3)
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("record bytes mismatch (-want +got):\n%s", diff)
	}
	if ptr%pack.Align != 0 {
		t.Errorf("record at %d is not %d-aligned", ptr, pack.Align)
	}
}

func TestBuild_RoundTrip(t *testing.T) {
	a := arena.New(arena.DefaultSize)
	values := []float32{0, 1, float32(math.Inf(1)), -0.25, 9.999e20}
	f := samples(t, a, values...)
	before, _ := a.Read(f.Samples.Ptr, f.Samples.Size)
	before = append([]byte(nil), before...)
	text := []byte(`{"info":{}}`)

	ptr, err := pack.NewBuilder(a, a).Build(f, text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	v, err := pack.ReadView(a, ptr)
	if err != nil {
		t.Fatalf("ReadView: %v", err)
	}
	if v.Package.DataPtr != f.Samples.Ptr {
		t.Errorf("data_ptr = %d, want sample buffer %d (no copy)", v.Package.DataPtr, f.Samples.Ptr)
	}
	if v.Package.NumPoints != f.SampleCount || v.Package.DataSize != f.SampleCount*4 {
		t.Errorf("counts = %+v", v.Package)
	}
	if string(v.Metadata) != string(text) {
		t.Errorf("metadata = %q", v.Metadata)
	}
	if diff := cmp.Diff(values, v.Samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	after, _ := a.Read(v.Package.DataPtr, v.Package.DataSize)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("sample bytes changed (-want +got):\n%s", diff)
	}

	if size, _ := a.BlockSize(v.Package.MetadataPtr); size != uint32(len(text)) {
		t.Errorf("metadata block is %d bytes, want exactly %d", size, len(text))
	}
}

func TestBuild_EmptyText(t *testing.T) {
	a := arena.New(arena.DefaultSize)
	f := samples(t, a, 1)

	ptr, err := pack.NewBuilder(a, a).Build(f, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p, err := pack.Read(a, ptr)
	if err != nil {
		t.Fatal(err)
	}
	if p.MetadataPtr != 0 || p.MetadataLen != 0 {
		t.Errorf("metadata = %d/%d, want null", p.MetadataPtr, p.MetadataLen)
	}
	if err := pack.Release(a, a, ptr); err != nil {
		t.Fatal(err)
	}
	if a.Live() != 0 {
		t.Errorf("%d blocks leaked", a.Live())
	}
}

func TestBuild_Rollback(t *testing.T) {
	tests := []struct {
		name   string
		failAt int
	}{
		{"metadata allocation", 1},
		{"record allocation", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := arena.New(arena.DefaultSize)
			f := samples(t, a, 1, 2, 3)
			rec := &recorder{inner: a, failAt: tc.failAt}

			ptr, err := pack.NewBuilder(a, rec).Build(f, []byte("{}"))
			if ptr != 0 {
				t.Errorf("ptr = %d, want 0", ptr)
			}
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBuild, Kind: errors.KindAllocation}) {
				t.Errorf("expected allocation error, got %v", err)
			}
			if a.Live() != 0 {
				t.Errorf("%d blocks survive a failed build", a.Live())
			}
		})
	}
}

func TestRelease_Order(t *testing.T) {
	a := arena.New(arena.DefaultSize)
	f := samples(t, a, 1, 2)

	ptr, err := pack.NewBuilder(a, a).Build(f, []byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	p, _ := pack.Read(a, ptr)

	rec := &recorder{inner: a}
	if err := pack.Release(a, rec, ptr); err != nil {
		t.Fatalf("Release: %v", err)
	}

	want := []string{
		fmt.Sprintf("free %d", p.MetadataPtr),
		fmt.Sprintf("free %d", p.DataPtr),
		fmt.Sprintf("free %d", ptr),
	}
	if diff := cmp.Diff(want, rec.log); diff != "" {
		t.Errorf("release order (-want +got):\n%s", diff)
	}
	if a.Live() != 0 {
		t.Errorf("%d blocks leaked", a.Live())
	}
}

// nopMemory fails the test on any access.
type nopMemory struct {
	gribpack.Memory
	t *testing.T
}

func (m nopMemory) Read(uint32, uint32) ([]byte, error) {
	m.t.Error("unexpected memory read")
	return nil, fmt.Errorf("unexpected")
}

func TestRelease_Null(t *testing.T) {
	rec := &recorder{inner: arena.New(64)}
	if err := pack.Release(nopMemory{t: t}, rec, 0); err != nil {
		t.Errorf("Release(0) = %v", err)
	}
	if len(rec.log) != 0 {
		t.Errorf("Release(0) touched the allocator: %v", rec.log)
	}
}

func TestRead_Invalid(t *testing.T) {
	a := arena.New(arena.DefaultSize)

	if _, err := pack.Read(a, 0); err == nil {
		t.Error("Read(0) should fail")
	}

	ptr, _ := a.Alloc(pack.Size, pack.Align)
	_ = a.WriteU32(ptr+pack.OffDataSize, 7)
	_ = a.WriteU32(ptr+pack.OffNumPoints, 2)
	_, err := pack.Read(a, ptr)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindInvalidData}) {
		t.Errorf("expected invalid data, got %v", err)
	}

	if _, err := pack.Read(a, a.Size()-4); err == nil {
		t.Error("record past end of memory should fail")
	}
}
