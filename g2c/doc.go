// Package g2c adapts a wasm32 build of the NCEP g2c library to the
// field.Capability interface.
//
// The build must export g2_getfld, g2_free, malloc and free. g2int is 64
// bits and pointers are 32 bits, so the gribfield struct is read with the
// layout computed from Gribfield. Sample data (gfld->fld) is float32.
package g2c
