package geometry

import (
	"testing"
)

func latLon(nx, ny, la1, lo1, la2, lo2 int64, n int) []int64 {
	v := make([]int64, n)
	v[7], v[8] = nx, ny
	v[11], v[12] = la1, lo1
	v[14], v[15] = la2, lo2
	return v
}

func TestResolve_LatLon(t *testing.T) {
	g := Resolve(0, latLon(7, 3, 45000000, -93000000, 40000000, -85000000, 19))

	want := Geometry{Nx: 7, Ny: 3, LatFirst: 45, LonFirst: -93, LatLast: 40, LonLast: -85}
	if g != want {
		t.Errorf("got %+v, want %+v", g, want)
	}
	if !g.Known() {
		t.Error("Known() = false for template 3.0")
	}
}

func TestResolve_MinimumLength(t *testing.T) {
	g := Resolve(0, latLon(2, 2, 1, 2, 3, 4, MinLatLonLen))
	if g.Nx != 2 || g.LonLast != 0.000004 {
		t.Errorf("got %+v", g)
	}
}

func TestResolve_MicroDegreePrecision(t *testing.T) {
	// HRRR-like corner; six decimals survive
	g := Resolve(0, latLon(1799, 1059, 21138123, 237280472, 47842195, 299082807, 19))
	if g.LatFirst != 21.138123 {
		t.Errorf("LatFirst = %v", g.LatFirst)
	}
	if g.LonFirst != 237.280472 {
		t.Errorf("LonFirst = %v", g.LonFirst)
	}
}

func TestResolve_Sentinels(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		tmpl   int64
	}{
		{"lambert conformal", latLon(7, 3, 1, 2, 3, 4, 22), 30},
		{"polar stereographic", latLon(7, 3, 1, 2, 3, 4, 18), 20},
		{"short template", make([]int64, MinLatLonLen-1), 0},
		{"empty template", nil, 0},
		{"negative template", latLon(7, 3, 1, 2, 3, 4, 19), -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := Resolve(tc.tmpl, tc.values)
			if g != Unknown {
				t.Errorf("got %+v, want sentinels", g)
			}
			if g.Nx != -1 || g.Ny != -1 {
				t.Errorf("nx/ny = %d/%d, want -1", g.Nx, g.Ny)
			}
			for _, c := range []float64{g.LatFirst, g.LonFirst, g.LatLast, g.LonLast} {
				if c != -999.0 {
					t.Errorf("coordinate %v, want -999", c)
				}
			}
			if g.Known() {
				t.Error("Known() = true for sentinel geometry")
			}
		})
	}
}
