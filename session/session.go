package session

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/gribpack"
	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/metadata"
	"github.com/wippyai/gribpack/pack"
	"github.com/wippyai/gribpack/resource"
	"github.com/wippyai/gribpack/samples"
)

// Processor is the boundary surface a session drives.
// *marshal.Processor implements it.
type Processor interface {
	ProcessField(ctx context.Context, bufPtr, bufLen uint32, index int) (uint32, error)
	ReleasePackage(ctx context.Context, ptr uint32) error
	Memory() gribpack.Memory
	Allocator() gribpack.Allocator
}

// KindPackage tags package handles.
const KindPackage resource.Kind = 1

// MaxScan bounds the number of fields Scan visits.
const MaxScan = 10000

// Session owns packages on behalf of Go callers.
type Session struct {
	proc     Processor
	packages *resource.Typed[*packageRef]
	table    *resource.Table
	mu       sync.Mutex
}

// packageRef is a live package. Drop releases it.
type packageRef struct {
	proc  Processor
	ptr   uint32
	index int
}

func (p *packageRef) Drop() {
	if err := p.proc.ReleasePackage(context.Background(), p.ptr); err != nil {
		Logger().Warn("release package", zap.Uint32("package", p.ptr), zap.Error(err))
	}
}

// New creates a session over proc.
func New(proc Processor) *Session {
	table := resource.NewTable()
	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		ref, _ := e.Value.(*packageRef)
		if ref == nil {
			return
		}
		Logger().Debug("package "+e.Type.String(),
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Uint32("package", ref.ptr),
			zap.Int("field", ref.index))
	}))
	return &Session{
		proc:     proc,
		table:    table,
		packages: resource.NewTyped[*packageRef](table, KindPackage),
	}
}

// Process packages field index (1-based) of msg and returns its handle.
func (s *Session) Process(ctx context.Context, msg []byte, index int) (resource.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var h resource.Handle
	err := s.withMessage(msg, func(buf gribpack.Region) error {
		ptr, err := s.proc.ProcessField(ctx, buf.Ptr, buf.Size, index)
		if err != nil {
			return err
		}
		h, err = s.packages.Insert(&packageRef{proc: s.proc, ptr: ptr, index: index})
		if err != nil {
			_ = s.proc.ReleasePackage(ctx, ptr)
			return errors.Wrap(errors.PhaseBuild, errors.KindNotInitialized, err, "session closed")
		}
		return nil
	})
	return h, err
}

// withMessage copies msg into linear memory for the duration of fn.
func (s *Session) withMessage(msg []byte, fn func(gribpack.Region) error) error {
	if len(msg) == 0 {
		return errors.InvalidInput(errors.PhaseDecode, "empty message")
	}
	size := uint32(len(msg))
	alloc := s.proc.Allocator()

	ptr, err := alloc.Alloc(size, 1)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseDecode, size, 1, err)
	}
	defer alloc.Free(ptr, size, 1)

	if err := s.proc.Memory().Write(ptr, msg); err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "copy message")
	}
	return fn(gribpack.Region{Ptr: ptr, Size: size})
}

// Pointer returns the raw package pointer behind h.
func (s *Session) Pointer(h resource.Handle) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.packages.Get(h)
	if !ok {
		return 0, false
	}
	return ref.ptr, true
}

// View copies the package behind h out of linear memory.
func (s *Session) View(h resource.Handle) (*pack.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.packages.Get(h)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRead, "package handle", handleName(h))
	}
	return pack.ReadView(s.proc.Memory(), ref.ptr)
}

// Release releases the package behind h. Unknown or already released
// handles are ignored.
func (s *Session) Release(h resource.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages.Remove(h)
}

// Len returns the number of packages held.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packages.Len()
}

// Close releases every package still held. The session is unusable after.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Close()
}

// Field is one entry of a scan.
type Field struct {
	Index    int
	Metadata []byte
	Document *metadata.Document
	Summary  samples.Summary
}

// Scan visits fields 1, 2, ... of msg until the decoder reports a failure,
// the way a viewer enumerates a file. Each package is read and released
// before the next field is decoded. Errors other than a decode failure
// abort the scan.
func (s *Session) Scan(ctx context.Context, msg []byte) ([]Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields []Field
	err := s.withMessage(msg, func(buf gribpack.Region) error {
		for index := 1; index <= MaxScan; index++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			ptr, err := s.proc.ProcessField(ctx, buf.Ptr, buf.Size, index)
			var de *errors.DecodeError
			if stderrors.As(err, &de) {
				Logger().Debug("scan finished", zap.Int("fields", len(fields)), zap.Int64("code", de.Code))
				return nil
			}
			if err != nil {
				return err
			}

			f, err := s.inspect(ptr, index)
			if relErr := s.proc.ReleasePackage(ctx, ptr); relErr != nil && err == nil {
				err = relErr
			}
			if err != nil {
				return err
			}
			fields = append(fields, f)
		}
		return nil
	})
	return fields, err
}

func (s *Session) inspect(ptr uint32, index int) (Field, error) {
	v, err := pack.ReadView(s.proc.Memory(), ptr)
	if err != nil {
		return Field{}, err
	}
	doc, err := metadata.Parse(v.Metadata)
	if err != nil {
		return Field{}, err
	}
	return Field{
		Index:    index,
		Metadata: v.Metadata,
		Document: doc,
		Summary:  samples.Summarize(v.Samples),
	}, nil
}

func handleName(h resource.Handle) string {
	return strconv.FormatUint(uint64(h), 10)
}
