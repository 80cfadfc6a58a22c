package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/source"
)

// APIServer serves a source.Store over the transaction REST contract.
type APIServer struct {
	http.Server
	store        source.Store
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewAPIServer configures routes on a ready-to-run http.Server.
func NewAPIServer(addr string, store source.Store, logger *log.Logger) *APIServer {
	if logger == nil {
		logger = log.Discard()
	}
	s := &APIServer{store: store, logger: logger.WithComponent(log.ComponentAPI)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /transactions", s.handleList)
	mux.HandleFunc("POST /transactions", s.handleCreate)
	mux.HandleFunc("GET /transactions/{id}", s.handleGet)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDelete)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	detector := security.NewDetector(logger)
	var h http.Handler = mux
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(detector.ExtractClientIP, logger).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server
func (s *APIServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *APIServer) handleList(w http.ResponseWriter, r *http.Request) {
	ts, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if ts == nil {
		ts = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *APIServer) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *APIServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := checkStorable(t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = ""
	created, err := s.store.Create(r.Context(), t)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := checkStorable(t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.store.Update(r.Context(), r.PathValue("id"), t)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *APIServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *APIServer) handleReady(w http.ResponseWriter, r *http.Request) {
	var err error
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		err = p.Ping(r.Context())
	}
	if err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// fail answers 404 for unknown ids and 500 for anything else.
func (s *APIServer) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, source.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction "+r.PathValue("id")+" not found")
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Store operation failed",
		log.FieldOperation, op, log.FieldError, err.Error())
	writeError(w, http.StatusInternalServerError, "internal error")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
