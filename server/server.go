// Package server exposes the fields of one loaded GRIB2 message over HTTP.
//
//	GET /healthz
//	GET /fields                  field list with parameter, grid and statistics
//	GET /fields/{index}/metadata the field's metadata document
//	GET /fields/{index}/data     samples as little-endian float32 bytes
//
// Every data request packages the field, copies it out and releases it, so
// no package outlives a request.
package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/session"
)

// Config holds server configuration.
type Config struct {
	Listen string
	Source string
}

// Server serves one message.
type Server struct {
	cfg    Config
	sess   *session.Session
	logger *zap.Logger
	server *http.Server
	msg    []byte
	fields []session.Field
	mu     sync.Mutex
}

// New creates a server for msg. logger may be nil.
func New(cfg Config, sess *session.Session, msg []byte, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, sess: sess, msg: msg, logger: logger}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("server starting", zap.String("listen", s.cfg.Listen), zap.String("source", s.cfg.Source))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/fields", s.handleFields)
	r.Route("/fields/{index}", func(r chi.Router) {
		r.Get("/metadata", s.handleMetadata)
		r.Get("/data", s.handleData)
	})
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// scan enumerates fields once and caches the result.
func (s *Server) scan(ctx context.Context) ([]session.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields != nil {
		return s.fields, nil
	}
	fields, err := s.sess.Scan(ctx, s.msg)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []session.Field{}
	}
	s.fields = fields
	return fields, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "source": s.cfg.Source, "bytes": len(s.msg)})
}

// FieldSummary is one entry of GET /fields.
type FieldSummary struct {
	Index          int      `json:"index"`
	Discipline     int64    `json:"discipline"`
	DisciplineName string   `json:"discipline_name"`
	Category       int64    `json:"category"`
	Number         int64    `json:"number"`
	ReferenceTime  [6]int64 `json:"reference_time"`
	Nx             int64    `json:"nx"`
	Ny             int64    `json:"ny"`
	NumPoints      int64    `json:"num_points"`
	Valid          int      `json:"valid"`
	Missing        int      `json:"missing"`
	Min            *float64 `json:"min"`
	Max            *float64 `json:"max"`
	Mean           *float64 `json:"mean"`
	StdDev         *float64 `json:"stddev"`
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.scan(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}

	out := make([]FieldSummary, 0, len(fields))
	for _, f := range fields {
		doc := f.Document
		category, number := doc.Parameter()
		out = append(out, FieldSummary{
			Index:          f.Index,
			Discipline:     doc.Info.Discipline,
			DisciplineName: doc.DisciplineName(),
			Category:       category,
			Number:         number,
			ReferenceTime:  doc.ReferenceTime(),
			Nx:             doc.Grid.Nx,
			Ny:             doc.Grid.Ny,
			NumPoints:      doc.Grid.NumPoints,
			Valid:          f.Summary.Valid,
			Missing:        f.Summary.Missing,
			Min:            finite(f.Summary.Min),
			Max:            finite(f.Summary.Max),
			Mean:           finite(f.Summary.Mean),
			StdDev:         finite(f.Summary.StdDev),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	h, err := s.sess.Process(r.Context(), s.msg, index)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	defer s.sess.Release(h)

	v, err := s.sess.View(h)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v.Metadata)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	h, err := s.sess.Process(r.Context(), s.msg, index)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	defer s.sess.Release(h)

	v, err := s.sess.View(h)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	buf := make([]byte, 0, len(v.Samples)*4)
	for _, x := range v.Samples {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.Header().Set("X-Num-Points", strconv.FormatUint(uint64(v.Package.NumPoints), 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid field index %q", raw))
		return 0, false
	}
	return index, true
}

// writeErr maps processing errors to status codes. A decode failure means
// the message has no such field.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var de *errors.DecodeError
	switch {
	case stderrors.As(err, &de):
		s.writeError(w, http.StatusNotFound, err.Error())
	case stderrors.Is(err, context.Canceled):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Warn("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// finite maps NaN (no valid samples) to JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
