package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/field"
	"github.com/wippyai/gribpack/geometry"
)

// DefaultCapacity is the metadata buffer size used when none is configured.
const DefaultCapacity = 4096

// Policy decides what an overflowing document means.
type Policy int

const (
	// PolicyFail rejects a document that lost any append.
	PolicyFail Policy = iota
	// PolicyTruncate keeps the legacy behaviour: dropped appends are silent
	// and the possibly malformed document is returned without error.
	PolicyTruncate
)

func (p Policy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "fail" or "truncate".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PolicyFail, nil
	case "truncate":
		return PolicyTruncate, nil
	}
	return PolicyFail, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown overflow policy %q", s))
}

// Serializer renders field metadata as a fixed-schema JSON document.
type Serializer struct {
	Capacity int
	Policy   Policy
}

// Result is a rendered document.
type Result struct {
	Text []byte
	// Dropped counts appends lost for lack of capacity. Nonzero only under
	// PolicyTruncate; the text is then syntactically incomplete.
	Dropped int
}

// Truncated reports whether any append was dropped.
func (r Result) Truncated() bool {
	return r.Dropped > 0
}

// Serialize renders f and g.
//
// The document is built append by append into a buffer of Capacity bytes.
// Under PolicyFail an overflow yields a KindOverflow error naming the section
// that first lost an append; under PolicyTruncate it yields a truncated
// Result and no error.
func (s Serializer) Serialize(f *field.DecodedField, g geometry.Geometry) (Result, error) {
	capacity := s.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	b := NewBuffer(capacity)
	write(b, f, g)

	if b.Dropped() > 0 && s.Policy == PolicyFail {
		return Result{}, errors.New(errors.PhaseSerialize, errors.KindOverflow).
			Path(strings.Split(b.FirstDrop(), ".")...).
			Value(b.Attempted()).
			Detail("document needs %d bytes, capacity %d allows %d", b.Attempted(), capacity, capacity-2).
			Build()
	}

	text := make([]byte, b.Len())
	copy(text, b.Bytes())
	return Result{Text: text, Dropped: b.Dropped()}, nil
}

// write emits the document in the same append granularity as the legacy
// encoder, so truncation drops the same pieces.
func write(b *Buffer, f *field.DecodedField, g geometry.Geometry) {
	var c []byte

	b.Enter("info")
	b.Append("{")
	c = append(c[:0], `"info":{"discipline":`...)
	c = strconv.AppendInt(c, f.Discipline, 10)
	c = append(c, `,"packing_type":`...)
	c = strconv.AppendInt(c, f.PackingType, 10)
	c = append(c, "},"...)
	b.appendBytes(c)

	b.Enter("sections")
	b.Append(`"sections":{`)

	b.Enter("sections.identification")
	c = append(c[:0], `"identification":{"len":`...)
	c = strconv.AppendInt(c, int64(f.Identification.Len()), 10)
	c = append(c, `,"data":`...)
	b.appendBytes(c)
	writeArray(b, f.Identification.Data)
	b.Append("},")

	c = templated(b, c, "product_definition", f.ProductDefinition)
	b.Append("},")
	c = templated(b, c, "data_representation", f.DataRepresentation)
	b.Append("},")
	c = templated(b, c, "grid_definition", f.GridDefinition)
	b.Append("}},")

	b.Enter("grid")
	c = append(c[:0], `"grid":{"num_points":`...)
	c = strconv.AppendInt(c, int64(f.SampleCount), 10)
	c = append(c, `,"nx":`...)
	c = strconv.AppendInt(c, g.Nx, 10)
	c = append(c, `,"ny":`...)
	c = strconv.AppendInt(c, g.Ny, 10)
	c = append(c, `,"lat_first":`...)
	c = appendCoord(c, g.LatFirst)
	c = append(c, `,"lon_first":`...)
	c = appendCoord(c, g.LonFirst)
	c = append(c, `,"lat_last":`...)
	c = appendCoord(c, g.LatLast)
	c = append(c, `,"lon_last":`...)
	c = appendCoord(c, g.LonLast)
	c = append(c, '}')
	b.appendBytes(c)

	b.Append("}")
}

func templated(b *Buffer, c []byte, name string, s field.Section) []byte {
	b.Enter("sections." + name)
	c = append(c[:0], '"')
	c = append(c, name...)
	c = append(c, `":{"template_num":`...)
	c = strconv.AppendInt(c, s.TemplateNum, 10)
	c = append(c, `,"len":`...)
	c = strconv.AppendInt(c, int64(s.Len()), 10)
	c = append(c, `,"data":`...)
	b.appendBytes(c)
	writeArray(b, s.Data)
	return c
}

// writeArray emits "[", each value, a "," between values and "]", each as
// its own append.
func writeArray(b *Buffer, values []int64) {
	b.Append("[")
	for i, v := range values {
		b.AppendInt(v)
		if i < len(values)-1 {
			b.Append(",")
		}
	}
	b.Append("]")
}

// appendCoord formats degrees with six decimals, matching printf %f.
func appendCoord(c []byte, v float64) []byte {
	return strconv.AppendFloat(c, v, 'f', 6, 64)
}
