package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/gribpack/errors"
)

// Engine wraps a wazero runtime.
type Engine struct {
	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
	cfg          Config
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 before the first module is
	// compiled. C decoders built with wasi-sdk import it.
	WASI bool
}

// DefaultConfig returns a 256MB limit with WASI enabled.
func DefaultConfig() *Config {
	return &Config{MemoryLimitPages: 4096, WASI: true}
}

// New creates an engine. A nil cfg means DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cfg:     *cfg,
	}
	if cfg.WASI {
		if err := e.InitWASI(ctx); err != nil {
			_ = e.runtime.Close(ctx)
			return nil, err
		}
	}
	return e, nil
}

// Close releases the runtime and every instance created from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// InitWASI instantiates the WASI singleton for this engine's runtime.
// Safe for concurrent calls.
func (e *Engine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	if _, err := instantiateWASI(ctx, e.runtime); err != nil {
		if e.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
			return errors.Wrap(errors.PhaseRuntime, errors.KindInstantiation, err, "instantiate WASI")
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// Compile validates and compiles a core module.
func (e *Engine) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	if len(wasm) < 8 || string(wasm[:4]) != "\x00asm" {
		return nil, errors.Load("not a wasm binary", nil)
	}
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	Logger().Debug("module compiled",
		zap.Int("bytes", len(wasm)),
		zap.Int("exports", len(compiled.ExportedFunctions())))
	return &Module{engine: e, compiled: compiled}, nil
}

// Instantiate compiles and instantiates wasm in one step.
func (e *Engine) Instantiate(ctx context.Context, wasm []byte) (*Instance, error) {
	m, err := e.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	return m.Instantiate(ctx)
}

// Module is a compiled core module.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Exports lists the exported function names.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// Instantiate creates a new instance. Each instance has its own memory.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	modConfig := wazero.NewModuleConfig().
		WithName(""). // anonymous for parallel instantiation
		WithStartFunctions()

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	if init := mod.ExportedFunction(fnInitialize); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, errors.Trap(errors.PhaseRuntime, fnInitialize, err)
		}
	}

	inst := newInstance(mod)
	Logger().Debug("module instantiated",
		zap.Bool("memory", inst.memory != nil),
		zap.Bool("allocator", inst.alloc.allocFn != nil))
	return inst, nil
}
