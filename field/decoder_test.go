package field_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/arena"
	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/field"
	"github.com/wippyai/gribpack/field/fieldtest"
)

func TestDecoder_Success(t *testing.T) {
	ctx := context.Background()
	mem := arena.New(arena.DefaultSize)
	fc := fieldtest.New(mem, mem, fieldtest.LatLonField(7, 3))

	f, err := field.NewDecoder(fc).Decode(ctx, gribpack.Region{}, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !fc.LastUnpack || !fc.LastExpand {
		t.Error("decoder must always request unpack and expand")
	}
	if f.SampleCount != 21 {
		t.Errorf("SampleCount = %d, want 21", f.SampleCount)
	}
	if f.Samples.Size != 84 || f.DataSize() != 84 {
		t.Errorf("Samples.Size = %d, DataSize = %d, want 84", f.Samples.Size, f.DataSize())
	}

	// only the sample buffer survives; the wrapper is gone
	if mem.Live() != 1 {
		t.Errorf("Live = %d, want 1 (samples only)", mem.Live())
	}
	if size, ok := mem.BlockSize(f.Samples.Ptr); !ok || size != 84 {
		t.Errorf("sample block = %d, %v", size, ok)
	}

	want := fieldtest.LatLonField(7, 3)
	if diff := cmp.Diff(want.GridDefinition, f.GridDefinition.Data); diff != "" {
		t.Errorf("grid definition mismatch (-want +got):\n%s", diff)
	}
	if f.Identification.Len() != 13 {
		t.Errorf("Identification.Len = %d", f.Identification.Len())
	}
}

func TestDecoder_InvalidIndex(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		index int
		code  int64
	}{
		{"zero", 0, fieldtest.CodeBadIndex},
		{"negative", -2, fieldtest.CodeBadIndex},
		{"past last", 3, fieldtest.CodeNoSuchField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mem := arena.New(arena.DefaultSize)
			fc := fieldtest.New(mem, mem, fieldtest.LatLonField(2, 2), fieldtest.LatLonField(2, 2))

			f, err := field.NewDecoder(fc).Decode(ctx, gribpack.Region{}, tc.index)
			if f != nil {
				t.Fatal("expected nil field")
			}
			var de *errors.DecodeError
			if !stderrors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if de.Code != tc.code || de.Index != tc.index {
				t.Errorf("got code=%d index=%d, want code=%d index=%d", de.Code, de.Index, tc.code, tc.index)
			}
			if mem.Live() != 0 {
				t.Errorf("Live = %d after failed decode", mem.Live())
			}
			if fc.Calls != 1 {
				t.Errorf("Calls = %d, decoder must not retry", fc.Calls)
			}
		})
	}
}

func TestDecoder_PartialRecordFreed(t *testing.T) {
	ctx := context.Background()
	mem := arena.New(arena.DefaultSize)
	bad := fieldtest.LatLonField(2, 2)
	bad.FailCode = 10
	fc := fieldtest.New(mem, mem, bad)

	_, err := field.NewDecoder(fc).Decode(ctx, gribpack.Region{}, 1)

	var de *errors.DecodeError
	if !stderrors.As(err, &de) || de.Code != 10 {
		t.Fatalf("expected DecodeError code 10, got %v", err)
	}
	if mem.Live() != 0 {
		t.Errorf("partial record leaked: Live = %d", mem.Live())
	}
}

type trapCapability struct{}

func (trapCapability) GetField(context.Context, gribpack.Region, int, bool, bool) (field.Record, int64, error) {
	return nil, 0, stderrors.New("wasm error: unreachable")
}

func TestDecoder_Trap(t *testing.T) {
	_, err := field.NewDecoder(trapCapability{}).Decode(context.Background(), gribpack.Region{}, 1)

	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindTrap}) {
		t.Fatalf("expected trap error, got %v", err)
	}
	var de *errors.DecodeError
	if stderrors.As(err, &de) {
		t.Error("a trap is not a decode code")
	}
}

type badSizeRecord struct{ freed bool }

func (r *badSizeRecord) Extract(context.Context) (*field.DecodedField, error) {
	return &field.DecodedField{SampleCount: 10, Samples: gribpack.Region{Ptr: 64, Size: 12}}, nil
}
func (r *badSizeRecord) Detach(context.Context) error { return nil }
func (r *badSizeRecord) Free(context.Context) { r.freed = true }

type badSizeCapability struct{ rec *badSizeRecord }

func (c badSizeCapability) GetField(context.Context, gribpack.Region, int, bool, bool) (field.Record, int64, error) {
	return c.rec, 0, nil
}

func TestDecoder_SampleSizeMismatch(t *testing.T) {
	rec := &badSizeRecord{}
	_, err := field.NewDecoder(badSizeCapability{rec: rec}).Decode(context.Background(), gribpack.Region{}, 1)

	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindInvalidData}) {
		t.Fatalf("expected invalid data, got %v", err)
	}
	if !rec.freed {
		t.Error("record must be freed when the field is rejected")
	}
}

func TestDecoder_NilCapability(t *testing.T) {
	_, err := field.NewDecoder(nil).Decode(context.Background(), gribpack.Region{}, 1)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindNotInitialized}) {
		t.Fatalf("got %v", err)
	}
}
