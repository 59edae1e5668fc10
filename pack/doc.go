// Package pack builds, reads and releases the result package: the record a
// caller reads straight out of linear memory after a successful decode.
//
// Layout (little-endian, align 4, 20 bytes):
//
//	offset  field          meaning
//	0       metadata_ptr   JSON text, not NUL-terminated
//	4       metadata_len   exact text length in bytes
//	8       data_ptr       num_points consecutive float32 samples
//	12      data_size      num_points * 4
//	16      num_points     sample count
//
// A package owns its metadata text and its sample buffer. It is released
// exactly once with Release, which frees the metadata, then the samples,
// then the record. Releasing pointer 0 does nothing. There is no guard
// against releasing twice.
package pack
