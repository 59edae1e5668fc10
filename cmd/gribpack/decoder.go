package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wippyai/gribpack/config"
	"github.com/wippyai/gribpack/engine"
	"github.com/wippyai/gribpack/g2c"
	"github.com/wippyai/gribpack/marshal"
	"github.com/wippyai/gribpack/session"
)

// decoder is a g2c instance with a session over it.
type decoder struct {
	eng     *engine.Engine
	inst    *engine.Instance
	session *session.Session
}

func openDecoder(ctx context.Context, cfg *config.Config) (*decoder, error) {
	wasm, err := os.ReadFile(cfg.Decoder.Wasm)
	if err != nil {
		return nil, fmt.Errorf("read decoder: %w", err)
	}

	eng, err := engine.New(ctx, &engine.Config{
		MemoryLimitPages: cfg.Decoder.MemoryLimitPages,
		WASI:             true,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	inst, err := eng.Instantiate(ctx, wasm)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, fmt.Errorf("instantiate decoder: %w", err)
	}
	for _, name := range []string{g2c.FnGetField, g2c.FnFree} {
		if !inst.HasExport(name) {
			_ = inst.Close(ctx)
			_ = eng.Close(ctx)
			return nil, fmt.Errorf("decoder %s does not export %s", cfg.Decoder.Wasm, name)
		}
	}

	proc := marshal.New(inst.Memory(), inst.Allocator(), g2c.New(inst), &marshal.Options{
		Capacity: cfg.Metadata.Capacity,
		Policy:   cfg.Policy(),
	})
	return &decoder{eng: eng, inst: inst, session: session.New(proc)}, nil
}

func (d *decoder) Close(ctx context.Context) {
	_ = d.session.Close()
	_ = d.inst.Close(ctx)
	_ = d.eng.Close(ctx)
}
