// Package field defines the decoded GRIB2 field model and the FieldDecoder
// that calls the external decode capability.
//
// The capability is opaque: it is handed a message region in linear memory
// and a 1-based field index and returns a Record or a nonzero code. The
// decoder always asks for a fully unpacked and expanded grid, copies the
// four template sections out, and keeps only the sample buffer, whose
// ownership moves to the caller:
//
//	dec := field.NewDecoder(capability)
//	f, err := dec.Decode(ctx, msg, 1)
//	var de *errors.DecodeError
//	if errors.As(err, &de) {
//	    // de.Code is the capability's raw code
//	}
//
// Nothing is retried. Decoding is deterministic over the same input, so a
// different index is the caller's decision.
package field
