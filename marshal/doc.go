// Package marshal is the boundary surface: it turns one field of a GRIB2
// message held in linear memory into a result package, and takes packages
// back for release.
//
// A Processor runs decode, geometry resolution, metadata serialization and
// package construction to completion on every call. It is bound to one
// linear memory and is not safe for concurrent use.
package marshal
