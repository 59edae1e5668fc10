// Package layout computes Canonical ABI layouts for records in wasm32 linear
// memory.
//
// gribpack describes every C struct it reads or writes (the package record it
// hands to hosts, the g2c gribfield it reads from the decoder) as a WIT record
// and derives field offsets from it rather than trusting Go struct layout.
//
// # Layout Rules
//
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records: fields laid out sequentially with padding for alignment
//   - Pointers: u32 on wasm32
//
// # Usage
//
//	rec := layout.Record(
//	    layout.Field("ptr", layout.Pointer),
//	    layout.Field("len", wit.S32{}),
//	)
//	info := layout.NewCalculator().Calculate(rec)
//	off, _ := info.Offset("len") // 4
package layout
