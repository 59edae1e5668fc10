package g2c

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/gribpack/layout"
)

// Gribfield mirrors struct gribfield from grib2.h for wasm32.
var Gribfield = layout.Record(
	layout.Field("version", wit.S64{}),
	layout.Field("discipline", wit.S64{}),
	layout.Field("idsect", layout.Pointer),
	layout.Field("idsectlen", wit.S64{}),
	layout.Field("local", layout.Pointer),
	layout.Field("locallen", wit.S64{}),
	layout.Field("ifldnum", wit.S64{}),
	layout.Field("griddef", wit.S64{}),
	layout.Field("ngrdpts", wit.S64{}),
	layout.Field("numoct_opt", wit.S64{}),
	layout.Field("interp_opt", wit.S64{}),
	layout.Field("num_opt", wit.S64{}),
	layout.Field("list_opt", layout.Pointer),
	layout.Field("igdtnum", wit.S64{}),
	layout.Field("igdtlen", wit.S64{}),
	layout.Field("igdtmpl", layout.Pointer),
	layout.Field("ipdtnum", wit.S64{}),
	layout.Field("ipdtlen", wit.S64{}),
	layout.Field("ipdtmpl", layout.Pointer),
	layout.Field("num_coord", wit.S64{}),
	layout.Field("coord_list", layout.Pointer),
	layout.Field("ndpts", wit.S64{}),
	layout.Field("idrtnum", wit.S64{}),
	layout.Field("idrtlen", wit.S64{}),
	layout.Field("idrtmpl", layout.Pointer),
	layout.Field("unpacked", wit.S64{}),
	layout.Field("expanded", wit.S64{}),
	layout.Field("ibmap", wit.S64{}),
	layout.Field("bmap", layout.Pointer),
	layout.Field("fld", layout.Pointer),
)

var gribfield = layout.NewCalculator().Calculate(Gribfield)

func offset(name string) uint32 {
	off, ok := gribfield.Offset(name)
	if !ok {
		panic("g2c: gribfield has no field " + name)
	}
	return off
}
