package server

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/gribpack/arena"
	"github.com/wippyai/gribpack/field/fieldtest"
	"github.com/wippyai/gribpack/marshal"
	"github.com/wippyai/gribpack/metadata"
	"github.com/wippyai/gribpack/session"
)

func newTestServer(t *testing.T, fields ...fieldtest.Field) (*arena.Arena, http.Handler) {
	t.Helper()
	a := arena.New(arena.DefaultSize)
	sess := session.New(marshal.New(a, a, fieldtest.New(a, a, fields...), nil))
	t.Cleanup(func() { _ = sess.Close() })
	return a, New(Config{Source: "test.grib2"}, sess, []byte("GRIB test"), nil).Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	rr := get(t, h, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["source"] != "test.grib2" {
		t.Errorf("body = %v", body)
	}
}

func TestFields(t *testing.T) {
	empty := fieldtest.LatLonField(2, 1)
	empty.Samples = []float32{9.999e20, 9.999e20}
	a, h := newTestServer(t, fieldtest.LatLonField(3, 2), empty)

	rr := get(t, h, "/fields")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	var got []FieldSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fields", len(got))
	}

	first := got[0]
	if first.Index != 1 || first.Nx != 3 || first.Ny != 2 || first.NumPoints != 6 {
		t.Errorf("first = %+v", first)
	}
	if first.DisciplineName != "meteorological" {
		t.Errorf("discipline name = %q", first.DisciplineName)
	}
	if diff := cmp.Diff([6]int64{2024, 6, 1, 12, 0, 0}, first.ReferenceTime); diff != "" {
		t.Errorf("reference time (-want +got):\n%s", diff)
	}
	if first.Min == nil || *first.Min != 0 || first.Max == nil || *first.Max != 5 {
		t.Errorf("range = %v..%v", first.Min, first.Max)
	}

	if second := got[1]; second.Valid != 0 || second.Missing != 2 || second.Min != nil || second.Mean != nil {
		t.Errorf("all-missing field = %+v", second)
	}
	if a.Live() != 0 {
		t.Errorf("%d blocks left after listing", a.Live())
	}
}

func TestMetadata(t *testing.T) {
	a, h := newTestServer(t, fieldtest.LatLonField(4, 3))

	rr := get(t, h, "/fields/1/metadata")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	doc, err := metadata.Parse(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Grid.Nx != 4 || doc.Grid.NumPoints != 12 || doc.Grid.LatFirst != 45 {
		t.Errorf("grid = %+v", doc.Grid)
	}
	if a.Live() != 0 {
		t.Errorf("%d blocks left after request", a.Live())
	}
}

func TestData(t *testing.T) {
	a, h := newTestServer(t, fieldtest.LatLonField(2, 2))

	rr := get(t, h, "/fields/1/data")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if rr.Header().Get("X-Num-Points") != "4" {
		t.Errorf("X-Num-Points = %q", rr.Header().Get("X-Num-Points"))
	}

	body := rr.Body.Bytes()
	if len(body) != 16 {
		t.Fatalf("body is %d bytes, want 16", len(body))
	}
	var got []float32
	for i := 0; i < len(body); i += 4 {
		got = append(got, math.Float32frombits(binary.LittleEndian.Uint32(body[i:])))
	}
	if diff := cmp.Diff([]float32{0, 1, 2, 3}, got); diff != "" {
		t.Errorf("samples (-want +got):\n%s", diff)
	}
	if a.Live() != 0 {
		t.Errorf("%d blocks left after request", a.Live())
	}
}

func TestErrors(t *testing.T) {
	_, h := newTestServer(t, fieldtest.LatLonField(2, 2))

	tests := []struct {
		path string
		code int
	}{
		{"/fields/abc/data", http.StatusBadRequest},
		{"/fields/0/data", http.StatusNotFound},
		{"/fields/7/metadata", http.StatusNotFound},
		{"/fields/1/unknown", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := get(t, h, tc.path)
			if rr.Code != tc.code {
				t.Errorf("status = %d, want %d", rr.Code, tc.code)
			}
		})
	}
}
