package field

import (
	"context"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
)

// Decoder invokes the capability and normalizes its outcome.
type Decoder struct {
	capability Capability
}

// NewDecoder wraps a capability.
func NewDecoder(c Capability) *Decoder {
	return &Decoder{capability: c}
}

// Decode fully decodes field index (1-based) of the message in msg.
//
// The capability is always asked to unpack and expand. On success the
// capability record is gone and the caller owns the returned Samples region.
// On failure nothing allocated by the capability survives. A nonzero
// capability code is returned as *errors.DecodeError; there is no retry.
func (d *Decoder) Decode(ctx context.Context, msg gribpack.Region, index int) (*DecodedField, error) {
	if d.capability == nil {
		return nil, errors.NotInitialized(errors.PhaseDecode, "capability")
	}

	rec, code, err := d.capability.GetField(ctx, msg, index, true, true)
	if err != nil {
		if rec != nil {
			rec.Free(ctx)
		}
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindTrap, err, "get field")
	}
	if code != 0 {
		if rec != nil {
			rec.Free(ctx)
		}
		return nil, errors.Decode(index, code)
	}
	if rec == nil {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "capability returned no record")
	}

	f, err := rec.Extract(ctx)
	if err != nil {
		rec.Free(ctx)
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "extract field")
	}
	if err := validate(f); err != nil {
		rec.Free(ctx)
		return nil, err
	}

	if err := rec.Detach(ctx); err != nil {
		rec.Free(ctx)
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindTrap, err, "detach samples")
	}
	return f, nil
}

func validate(f *DecodedField) error {
	if f.Samples.Size != f.DataSize() {
		return errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path("samples").
			Value(f.Samples.Size).
			Detail("buffer is %d bytes, %d samples need %d", f.Samples.Size, f.SampleCount, f.DataSize()).
			Build()
	}
	if f.SampleCount > 0 && f.Samples.IsNull() {
		return errors.InvalidData(errors.PhaseDecode, []string{"samples"}, "null sample buffer for a non-empty field")
	}
	return nil
}
