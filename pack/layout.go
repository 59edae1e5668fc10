package pack

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/gribpack/layout"
)

// Record field offsets.
const (
	OffMetadataPtr uint32 = 0
	OffMetadataLen uint32 = 4
	OffDataPtr     uint32 = 8
	OffDataSize    uint32 = 12
	OffNumPoints   uint32 = 16

	// Size is the record size in bytes.
	Size uint32 = 20
	// Align is the record alignment.
	Align uint32 = 4
)

// metadataAlign is the alignment requested for metadata text.
const metadataAlign uint32 = 1

// Type describes the record as a canonical ABI record type.
var Type = layout.Record(
	layout.Field("metadata-ptr", layout.Pointer),
	layout.Field("metadata-len", wit.U32{}),
	layout.Field("data-ptr", layout.Pointer),
	layout.Field("data-size", wit.U32{}),
	layout.Field("num-points", wit.U32{}),
)
