// Package gribpack packages decoded GRIB2 fields for hosts that share nothing
// but a flat WebAssembly linear memory with the decoder.
//
// A GRIB2 message is decoded by an external capability (typically the g2c
// library compiled to wasm32). gribpack takes one decoded field, renders its
// section metadata as a fixed-schema JSON document, derives lat/lon corner
// geometry for grid template 3.0 and writes a 20-byte record into linear
// memory that points at the metadata text and at the float32 samples. The
// caller owns that record until it hands it back for release.
//
// # Architecture Overview
//
//	gribpack/            Root package with Memory, Allocator and Region
//	├── field/           Decode capability interface and FieldDecoder
//	├── geometry/        Grid template 3.0 corner/size resolution
//	├── metadata/        Bounded JSON serializer
//	├── pack/            Package record layout, construction and release
//	├── marshal/         ProcessField / ReleasePackage boundary surface
//	├── layout/          Canonical ABI record layout from WIT descriptions
//	├── arena/           In-process linear memory with a free-list allocator
//	├── engine/          wazero integration (memory, malloc/free, WASI)
//	├── g2c/             Decode capability backed by a g2c wasm build
//	├── resource/        Handle table for Go-side package ownership
//	├── session/         Handle-based API over a processor
//	├── samples/         Sample statistics
//	├── catalog/         SQLite catalog of field metadata
//	├── server/          HTTP access to fields of a loaded message
//	├── config/          YAML configuration
//	└── errors/          Structured error types
//
// # Quick Start
//
//	eng, err := engine.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	inst, err := eng.Instantiate(ctx, g2cWasm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	proc := marshal.New(inst.Memory(), inst.Allocator(), g2c.New(inst), nil)
//	s := session.New(proc)
//	defer s.Close()
//
//	h, err := s.Process(ctx, gribBytes, 1)
//	view, _ := s.View(h)
//	fmt.Println(string(view.Metadata))
//	s.Release(h)
//
// # Ownership
//
// A package returned by ProcessField is owned by the caller and must be
// released exactly once. Neither double release nor use after release is
// detected at the pointer level; the session package adds handles for Go
// callers that want that protection.
package gribpack
