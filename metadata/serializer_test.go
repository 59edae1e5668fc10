package metadata

import (
	"encoding/json"
	stderrors "errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/field"
	"github.com/wippyai/gribpack/geometry"
)

func gdt(nx, ny, la1, lo1, la2, lo2 int64) []int64 {
	v := make([]int64, 16)
	v[7], v[8] = nx, ny
	v[11], v[12] = la1, lo1
	v[14], v[15] = la2, lo2
	return v
}

func smallField() *field.DecodedField {
	return &field.DecodedField{
		Discipline:         0,
		PackingType:        40,
		Identification:     field.Section{Data: []int64{7, 0}},
		ProductDefinition:  field.Section{TemplateNum: 0, Data: []int64{0, 0}},
		DataRepresentation: field.Section{TemplateNum: 40, Data: []int64{1, 2}},
		GridDefinition:     field.Section{TemplateNum: 0, Data: gdt(7, 3, 45000000, -93000000, 40000000, -85000000)},
		SampleCount:        21,
	}
}

const smallDoc = `{"info":{"discipline":0,"packing_type":40},` +
	`"sections":{` +
	`"identification":{"len":2,"data":[7,0]},` +
	`"product_definition":{"template_num":0,"len":2,"data":[0,0]},` +
	`"data_representation":{"template_num":40,"len":2,"data":[1,2]},` +
	`"grid_definition":{"template_num":0,"len":16,"data":[0,0,0,0,0,0,0,7,3,0,0,45000000,-93000000,0,40000000,-85000000]}},` +
	`"grid":{"num_points":21,"nx":7,"ny":3,"lat_first":45.000000,"lon_first":-93.000000,"lat_last":40.000000,"lon_last":-85.000000}}`

func serialize(t *testing.T, s Serializer, f *field.DecodedField) Result {
	t.Helper()
	res, err := s.Serialize(f, geometry.Resolve(f.GridDefinition.TemplateNum, f.GridDefinition.Data))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return res
}

func TestSerialize_Exact(t *testing.T) {
	res := serialize(t, Serializer{}, smallField())

	if diff := cmp.Diff(smallDoc, string(res.Text)); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	if res.Truncated() {
		t.Error("unexpected truncation")
	}
	if !json.Valid(res.Text) {
		t.Error("document is not valid JSON")
	}
}

type document struct {
	Info struct {
		Discipline  *int64 `json:"discipline"`
		PackingType *int64 `json:"packing_type"`
	} `json:"info"`
	Sections map[string]struct {
		TemplateNum *int64  `json:"template_num"`
		Len         int     `json:"len"`
		Data        []int64 `json:"data"`
	} `json:"sections"`
	Grid map[string]float64 `json:"grid"`
}

func TestSerialize_Schema(t *testing.T) {
	res := serialize(t, Serializer{}, smallField())

	var doc document
	if err := json.Unmarshal(res.Text, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Info.Discipline == nil || doc.Info.PackingType == nil {
		t.Error("info keys missing")
	}

	wantSections := []string{"identification", "product_definition", "data_representation", "grid_definition"}
	if len(doc.Sections) != len(wantSections) {
		t.Errorf("got %d sections, want %d", len(doc.Sections), len(wantSections))
	}
	for _, name := range wantSections {
		s, ok := doc.Sections[name]
		if !ok {
			t.Errorf("section %s missing", name)
			continue
		}
		if (name == "identification") != (s.TemplateNum == nil) {
			t.Errorf("section %s: template_num presence wrong", name)
		}
		if s.Len != len(s.Data) {
			t.Errorf("section %s: len %d, data has %d", name, s.Len, len(s.Data))
		}
	}

	wantGrid := map[string]float64{
		"num_points": 21, "nx": 7, "ny": 3,
		"lat_first": 45, "lon_first": -93, "lat_last": 40, "lon_last": -85,
	}
	if diff := cmp.Diff(wantGrid, doc.Grid); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialize_EmptySection(t *testing.T) {
	f := smallField()
	f.ProductDefinition = field.Section{TemplateNum: 8}
	f.Identification = field.Section{Data: []int64{}}

	res := serialize(t, Serializer{}, f)
	text := string(res.Text)

	if !strings.Contains(text, `"identification":{"len":0,"data":[]}`) {
		t.Errorf("empty identification rendered wrong: %s", text)
	}
	if !strings.Contains(text, `"product_definition":{"template_num":8,"len":0,"data":[]}`) {
		t.Errorf("empty product definition rendered wrong: %s", text)
	}
	if !json.Valid(res.Text) {
		t.Error("document is not valid JSON")
	}
}

func TestSerialize_OrderPreserved(t *testing.T) {
	f := smallField()
	f.DataRepresentation.Data = []int64{9, 3, 3, -1, 0, 9}

	res := serialize(t, Serializer{}, f)
	if !strings.Contains(string(res.Text), `"data":[9,3,3,-1,0,9]`) {
		t.Errorf("values reordered or deduplicated: %s", res.Text)
	}
}

var numbers = regexp.MustCompile(`-?[0-9]+(\.[0-9]+)?`)

func TestSerialize_ShapeInvariant(t *testing.T) {
	a := smallField()
	b := smallField()
	b.Discipline = 10
	b.Identification.Data = []int64{34, 1}
	b.DataRepresentation.Data = []int64{-5, 123456789}
	b.GridDefinition.Data = gdt(1799, 1059, 21138123, 237280472, 47842195, 299082807)

	ra := serialize(t, Serializer{}, a)
	rb := serialize(t, Serializer{}, b)

	if string(ra.Text) == string(rb.Text) {
		t.Fatal("documents should differ in values")
	}
	shapeA := numbers.ReplaceAllString(string(ra.Text), "0")
	shapeB := numbers.ReplaceAllString(string(rb.Text), "0")
	if diff := cmp.Diff(shapeA, shapeB); diff != "" {
		t.Errorf("shape differs (-a +b):\n%s", diff)
	}
}

func TestSerialize_SentinelGeometry(t *testing.T) {
	f := smallField()
	f.GridDefinition.TemplateNum = 30

	res := serialize(t, Serializer{}, f)
	want := `"grid":{"num_points":21,"nx":-1,"ny":-1,"lat_first":-999.000000,"lon_first":-999.000000,"lat_last":-999.000000,"lon_last":-999.000000}`
	if !strings.Contains(string(res.Text), want) {
		t.Errorf("sentinel grid missing: %s", res.Text)
	}
}

func TestSerialize_CapacityBoundary(t *testing.T) {
	full := len(smallDoc)

	res, err := Serializer{Capacity: full + 2}.Serialize(smallField(), geometry.Resolve(0, gdt(7, 3, 45000000, -93000000, 40000000, -85000000)))
	if err != nil {
		t.Fatalf("capacity %d should fit: %v", full+2, err)
	}
	if len(res.Text) != full {
		t.Errorf("len = %d, want %d", len(res.Text), full)
	}

	_, err = Serializer{Capacity: full + 1}.Serialize(smallField(), geometry.Resolve(0, gdt(7, 3, 45000000, -93000000, 40000000, -85000000)))
	if err == nil {
		t.Fatalf("capacity %d should overflow", full+1)
	}
}

func TestSerialize_FailPolicy(t *testing.T) {
	f := smallField()
	f.GridDefinition.Data = make([]int64, 2000)

	_, err := Serializer{Capacity: 512, Policy: PolicyFail}.Serialize(f, geometry.Unknown)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSerialize, Kind: errors.KindOverflow}) {
		t.Fatalf("expected overflow, got %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatal("expected *errors.Error")
	}
	if strings.Join(e.Path, ".") != "sections.grid_definition" {
		t.Errorf("Path = %v, want sections.grid_definition", e.Path)
	}
}

func TestSerialize_TruncatePolicy(t *testing.T) {
	f := smallField()
	f.GridDefinition.Data = make([]int64, 2000)
	for i := range f.GridDefinition.Data {
		f.GridDefinition.Data[i] = 1234567
	}

	res, err := Serializer{Capacity: 512, Policy: PolicyTruncate}.Serialize(f, geometry.Unknown)
	if err != nil {
		t.Fatalf("truncate policy must not fail: %v", err)
	}
	if !res.Truncated() {
		t.Fatal("expected truncation")
	}
	if len(res.Text) > 510 {
		t.Errorf("len = %d exceeds capacity-2", len(res.Text))
	}
	if json.Valid(res.Text) {
		t.Error("truncated document unexpectedly valid")
	}
	if !strings.Contains(string(res.Text), `"grid_definition":{"template_num":0,"len":2000,"data":[1234567,`) {
		t.Errorf("prefix before the overflow should survive: %q", res.Text[:80])
	}
	if strings.Contains(string(res.Text), `"grid":`) {
		t.Error("grid chunk cannot fit after the overflow")
	}
}

func TestBuffer_ContinuesAfterDrop(t *testing.T) {
	b := NewBuffer(10)

	if !b.Append("abcdefg") {
		t.Fatal("first append should fit")
	}
	if b.Append("xyz") {
		t.Fatal("second append should be dropped")
	}
	if !b.Append("h") {
		t.Fatal("third append should fit")
	}
	if string(b.Bytes()) != "abcdefgh" {
		t.Errorf("got %q", b.Bytes())
	}
	if b.Dropped() != 1 || b.Attempted() != 11 {
		t.Errorf("Dropped=%d Attempted=%d", b.Dropped(), b.Attempted())
	}
	if b.Append("i") {
		t.Error("ninth byte must not fit in capacity 10")
	}
}

func TestBuffer_AppendInt(t *testing.T) {
	b := NewBuffer(64)
	b.AppendInt(-93000000)
	b.Append(",")
	b.AppendInt(0)
	if string(b.Bytes()) != "-93000000,0" {
		t.Errorf("got %q", b.Bytes())
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyFail, false},
		{"fail", PolicyFail, false},
		{" Truncate ", PolicyTruncate, false},
		{"drop", PolicyFail, true},
	}
	for _, tc := range tests {
		got, err := ParsePolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParsePolicy(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if PolicyTruncate.String() != "truncate" {
		t.Errorf("String() = %q", PolicyTruncate.String())
	}
}
