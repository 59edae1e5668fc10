package pack

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
)

// Package is a decoded package record.
type Package struct {
	MetadataPtr uint32
	MetadataLen uint32
	DataPtr     uint32
	DataSize    uint32
	NumPoints   uint32
}

// Metadata returns the metadata region.
func (p Package) Metadata() gribpack.Region {
	return gribpack.Region{Ptr: p.MetadataPtr, Size: p.MetadataLen}
}

// Data returns the sample region.
func (p Package) Data() gribpack.Region {
	return gribpack.Region{Ptr: p.DataPtr, Size: p.DataSize}
}

// Read decodes the record at ptr.
func Read(mem gribpack.Memory, ptr uint32) (Package, error) {
	if ptr == 0 {
		return Package{}, errors.InvalidInput(errors.PhaseRead, "null package pointer")
	}
	raw, err := mem.Read(ptr, Size)
	if err != nil {
		return Package{}, errors.Wrap(errors.PhaseRead, errors.KindOutOfBounds, err, "read package record")
	}
	p := Package{
		MetadataPtr: binary.LittleEndian.Uint32(raw[OffMetadataPtr:]),
		MetadataLen: binary.LittleEndian.Uint32(raw[OffMetadataLen:]),
		DataPtr:     binary.LittleEndian.Uint32(raw[OffDataPtr:]),
		DataSize:    binary.LittleEndian.Uint32(raw[OffDataSize:]),
		NumPoints:   binary.LittleEndian.Uint32(raw[OffNumPoints:]),
	}
	if uint64(p.NumPoints)*4 != uint64(p.DataSize) {
		return p, errors.New(errors.PhaseRead, errors.KindInvalidData).
			Path("data_size").
			Value(p.DataSize).
			Detail("%d points need %d bytes", p.NumPoints, uint64(p.NumPoints)*4).
			Build()
	}
	return p, nil
}

// View is a host-side copy of a package's contents.
type View struct {
	Metadata []byte
	Samples  []float32
	Package  Package
}

// ReadView reads the package at ptr and copies out its metadata and samples.
func ReadView(mem gribpack.Memory, ptr uint32) (*View, error) {
	p, err := Read(mem, ptr)
	if err != nil {
		return nil, err
	}

	v := &View{Package: p}
	if p.MetadataLen > 0 {
		text, err := mem.Read(p.MetadataPtr, p.MetadataLen)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseRead, errors.KindOutOfBounds, err, "read metadata")
		}
		v.Metadata = append([]byte(nil), text...)
	}

	v.Samples = make([]float32, p.NumPoints)
	if p.NumPoints > 0 {
		raw, err := mem.Read(p.DataPtr, p.DataSize)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseRead, errors.KindOutOfBounds, err, "read samples")
		}
		for i := range v.Samples {
			v.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	}
	return v, nil
}
