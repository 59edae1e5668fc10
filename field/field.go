package field

import (
	"context"

	"github.com/wippyai/gribpack"
)

// SampleSize is the width of one sample in bytes (IEEE-754 float32).
const SampleSize = 4

// Section is one integer-array section of a decoded field.
// Data holds the section values in message order; its length is the
// section's declared length.
type Section struct {
	Data        []int64
	TemplateNum int64
}

// Len returns the declared length of the section.
func (s Section) Len() int {
	return len(s.Data)
}

// DecodedField is the read-only product of the decode capability.
//
// Everything except Samples is a Go copy of the capability's record. Samples
// stays in linear memory and is the only part whose ownership moves on.
type DecodedField struct {
	Identification     Section
	ProductDefinition  Section
	DataRepresentation Section
	GridDefinition     Section
	Discipline         int64
	PackingType        int64
	Samples            gribpack.Region
	SampleCount        uint32
}

// DataSize returns the byte length the samples must occupy.
func (f *DecodedField) DataSize() uint32 {
	return f.SampleCount * SampleSize
}

// Capability is the external GRIB2 decoder.
//
// GetField decodes field index (1-based) of the message in msg. A nonzero
// code is the capability's own failure signal; the returned Record may then
// be nil or partially constructed. err reports a failure to reach the
// capability at all (a trap or a memory fault), not a decode failure.
type Capability interface {
	GetField(ctx context.Context, msg gribpack.Region, index int, unpack, expand bool) (rec Record, code int64, err error)
}

// Record is the capability-owned wrapper around one decoded field.
type Record interface {
	// Extract copies the sections out of the record. Samples in the result
	// still belong to the record until Detach succeeds.
	Extract(ctx context.Context) (*DecodedField, error)

	// Detach destroys the record except its sample buffer, whose ownership
	// moves to the caller.
	Detach(ctx context.Context) error

	// Free destroys the record and everything it owns, samples included.
	// It must tolerate partially constructed records.
	Free(ctx context.Context)
}
