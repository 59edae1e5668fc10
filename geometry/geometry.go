// Package geometry derives grid size and corner coordinates from a GRIB2
// grid definition template.
//
// Only template 3.0 (regular latitude/longitude, "equirectangular") is
// understood. Every other template, and a template 3.0 shorter than 16
// values, resolves to Unknown: nx = ny = -1 and all corners -999. Unknown is
// a documented placeholder for consumers, not an error.
package geometry

const (
	// LatLonTemplate is grid definition template 3.0.
	LatLonTemplate int64 = 0

	// MinLatLonLen is the shortest template 3.0 that carries both corners.
	MinLatLonLen = 16

	// SentinelSize marks an unknown grid dimension.
	SentinelSize int64 = -1
	// SentinelCoord marks an unknown corner coordinate, in degrees.
	SentinelCoord = -999.0

	// microDegrees is the fixed-point scale of template 3.0 angles.
	microDegrees = 1e6
)

// Template 3.0 octet-group offsets used here.
const (
	offNi  = 7
	offNj  = 8
	offLa1 = 11
	offLo1 = 12
	offLa2 = 14
	offLo2 = 15
)

// Geometry is the simplified shape of a grid.
type Geometry struct {
	Nx       int64
	Ny       int64
	LatFirst float64
	LonFirst float64
	LatLast  float64
	LonLast  float64
}

// Unknown is the all-sentinel geometry.
var Unknown = Geometry{
	Nx:       SentinelSize,
	Ny:       SentinelSize,
	LatFirst: SentinelCoord,
	LonFirst: SentinelCoord,
	LatLast:  SentinelCoord,
	LonLast:  SentinelCoord,
}

// Resolve returns the geometry for a grid definition template.
func Resolve(templateNum int64, values []int64) Geometry {
	if templateNum != LatLonTemplate || len(values) < MinLatLonLen {
		return Unknown
	}
	return Geometry{
		Nx:       values[offNi],
		Ny:       values[offNj],
		LatFirst: degrees(values[offLa1]),
		LonFirst: degrees(values[offLo1]),
		LatLast:  degrees(values[offLa2]),
		LonLast:  degrees(values[offLo2]),
	}
}

// Known reports whether g carries computed values.
func (g Geometry) Known() bool {
	return g != Unknown
}

func degrees(micro int64) float64 {
	return float64(micro) / microDegrees
}
