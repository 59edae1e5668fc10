package metadata

import (
	"testing"

	"github.com/wippyai/gribpack/geometry"
)

func TestParse(t *testing.T) {
	f := smallField()
	f.Identification.Data = []int64{7, 0, 2, 1, 1, 2024, 6, 1, 12, 30, 0, 0, 1}
	f.ProductDefinition.Data = []int64{0, 0, 2}
	res := serialize(t, Serializer{}, f)

	d, err := Parse(res.Text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Info.PackingType != 40 || d.DisciplineName() != "meteorological" {
		t.Errorf("info = %+v", d.Info)
	}
	if d.Sections.Identification.TemplateNum != nil {
		t.Error("identification carries a template number")
	}
	if tn := d.Sections.DataRepresentation.TemplateNum; tn == nil || *tn != 40 {
		t.Errorf("data representation template = %v", tn)
	}
	if d.Grid.Nx != 7 || d.Grid.LonFirst != -93 {
		t.Errorf("grid = %+v", d.Grid)
	}
	if c, n := d.Parameter(); c != 0 || n != 0 {
		t.Errorf("Parameter = %d, %d", c, n)
	}
	if rt := d.ReferenceTime(); rt != [6]int64{2024, 6, 1, 12, 30, 0} {
		t.Errorf("ReferenceTime = %v", rt)
	}
}

func TestParse_Truncated(t *testing.T) {
	f := smallField()
	res, err := Serializer{Capacity: 100, Policy: PolicyTruncate}.Serialize(f, geometry.Unknown)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(res.Text); err == nil {
		t.Error("truncated document parsed")
	}
}

func TestDocument_Short(t *testing.T) {
	d := &Document{}
	d.Info.Discipline = 99
	if d.DisciplineName() != "unknown" {
		t.Error("unexpected discipline name")
	}
	if c, n := d.Parameter(); c != -1 || n != -1 {
		t.Errorf("Parameter = %d, %d", c, n)
	}
	if d.ReferenceTime()[0] != -1 {
		t.Error("ReferenceTime on empty identification")
	}
}
