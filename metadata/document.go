package metadata

import (
	"encoding/json"

	"github.com/wippyai/gribpack/errors"
)

// Document is the parsed form of a rendered metadata document, for host
// code that reads packages back.
type Document struct {
	Info struct {
		Discipline  int64 `json:"discipline"`
		PackingType int64 `json:"packing_type"`
	} `json:"info"`
	Sections struct {
		Identification     SectionDoc `json:"identification"`
		ProductDefinition  SectionDoc `json:"product_definition"`
		DataRepresentation SectionDoc `json:"data_representation"`
		GridDefinition     SectionDoc `json:"grid_definition"`
	} `json:"sections"`
	Grid GridDoc `json:"grid"`
}

// SectionDoc is one entry of "sections". TemplateNum is absent for the
// identification section.
type SectionDoc struct {
	TemplateNum *int64  `json:"template_num,omitempty"`
	Len         int     `json:"len"`
	Data        []int64 `json:"data"`
}

// GridDoc is the "grid" object.
type GridDoc struct {
	NumPoints int64   `json:"num_points"`
	Nx        int64   `json:"nx"`
	Ny        int64   `json:"ny"`
	LatFirst  float64 `json:"lat_first"`
	LonFirst  float64 `json:"lon_first"`
	LatLast   float64 `json:"lat_last"`
	LonLast   float64 `json:"lon_last"`
}

// Parse decodes a metadata document. Truncated text fails.
func Parse(text []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(text, &d); err != nil {
		return nil, errors.Wrap(errors.PhaseRead, errors.KindInvalidData, err, "parse metadata")
	}
	return &d, nil
}

// Discipline names for GRIB2 code table 0.0.
var disciplines = map[int64]string{
	0:  "meteorological",
	1:  "hydrological",
	2:  "land surface",
	3:  "satellite remote sensing",
	4:  "space weather",
	10: "oceanographic",
	20: "health and socioeconomic",
}

// DisciplineName returns the code table 0.0 name of d.Info.Discipline.
func (d *Document) DisciplineName() string {
	if name, ok := disciplines[d.Info.Discipline]; ok {
		return name
	}
	return "unknown"
}

// Parameter returns the parameter category and number from product
// definition octets 10 and 11, or -1, -1 when the template is too short.
func (d *Document) Parameter() (category, number int64) {
	data := d.Sections.ProductDefinition.Data
	if len(data) < 2 {
		return -1, -1
	}
	return data[0], data[1]
}

// ReferenceTime returns year, month, day, hour, minute and second from
// the identification section, or all -1 when it is too short.
func (d *Document) ReferenceTime() [6]int64 {
	data := d.Sections.Identification.Data
	if len(data) < 11 {
		return [6]int64{-1, -1, -1, -1, -1, -1}
	}
	return [6]int64{data[5], data[6], data[7], data[8], data[9], data[10]}
}
