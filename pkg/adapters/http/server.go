package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/fasthooks"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxPayload bounds the size of a hook payload.
const maxPayload = 4 << 20

// Dispatcher runs one hook invocation.
type Dispatcher interface {
	Dispatch(ctx context.Context, in *domain.Input) (domain.Result, error)
}

// Server serves hook invocations over HTTP. Invocations are serialized so
// observers see one invocation at a time.
type Server struct {
	Dispatcher Dispatcher
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	mu         sync.Mutex
}

// Option configures the Server.
type Option func(*Server)

// WithGatherer exposes the given Prometheus registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the dispatcher.
func NewHandler(d Dispatcher, opts ...Option) http.Handler {
	server := &Server{
		Dispatcher: d,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/hooks", server.Hook)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type errorResponse struct {
	Error  string `json:"error"`
	HookID string `json:"hook_id,omitempty"`
}

// Hook handles POST /hooks: the body is a hook payload, the response is the
// document the host expects, or 204 when there is nothing to say.
func (s *Server) Hook(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}
	in, err := domain.ParseInput(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		s.logger.Warn("Hook: invalid payload", "err", err)
		return
	}

	s.mu.Lock()
	res, err := s.Dispatcher.Dispatch(r.Context(), in)
	s.mu.Unlock()

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUnknownStage) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), HookID: res.HookID})
		s.logger.Error("Hook failed", "hook_id", res.HookID, "err", err)
		return
	}

	out := fasthooks.Render(in.HookEventName, res)
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
