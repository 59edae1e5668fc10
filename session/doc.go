// Package session is the Go-facing API over a marshal processor.
//
// A Session copies a GRIB2 message into linear memory, packages fields from
// it and hands out resource handles instead of raw pointers. Releasing a
// handle releases its package exactly once; releasing it again is a no-op.
// Close releases every package still held. All methods are serialized with
// a mutex, so a Session may be shared between goroutines.
package session
