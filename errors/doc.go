// Package errors provides structured error types for gribpack.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: field path, offending value, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSerialize, errors.KindOverflow).
//		Path("sections", "grid_definition").
//		Detail("append of %d bytes dropped", n).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhaseBuild, 20, 4, cause)
//	err := errors.OutOfBounds(errors.PhaseRead, ptr, 20)
//
// A nonzero code from the decode capability is reported as *DecodeError,
// which also matches the generic decode_failure Error under errors.Is.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
