package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/straja-ai/prerouter/internal/auth"
	"github.com/straja-ai/prerouter/internal/config"
	"github.com/straja-ai/prerouter/internal/redact"
	"github.com/straja-ai/prerouter/internal/router"
	"github.com/straja-ai/prerouter/internal/tracelog"
)

// Server wraps the HTTP surface around the preprocessing pipeline.
type Server struct {
	mux      *http.ServeMux
	cfg      *config.Config
	auth     *auth.Auth
	pipeline *router.Pipeline
	emitter  *tracelog.Emitter // nil when tracing is disabled

	mu      sync.Mutex
	httpSrv *http.Server
}

// New creates a server with all routes registered.
func New(cfg *config.Config, authz *auth.Auth, pipeline *router.Pipeline, emitter *tracelog.Emitter) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		cfg:      cfg,
		auth:     authz,
		pipeline: pipeline,
		emitter:  emitter,
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/preprocess", s.requireKey(s.handlePreprocess))
	s.mux.HandleFunc("/v1/policy/terms", s.requireKey(s.handlePolicyTerms))
	s.mux.HandleFunc("/v1/trace/metrics", s.requireKey(s.handleTraceMetrics))

	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	redact.Logf("prerouter running on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

type preprocessRequest struct {
	Query *string `json:"query"`
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
		return
	}

	if limit := s.cfg.Server.MaxRequestBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var body preprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "invalid_request_error")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_request_error")
		return
	}
	if body.Query == nil {
		writeError(w, http.StatusBadRequest, "missing query", "invalid_request_error")
		return
	}

	writeJSON(w, http.StatusOK, s.pipeline.Run(*body.Query))
}

type policyTermsResponse struct {
	Terms []string `json:"terms"`
}

func (s *Server) handlePolicyTerms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusOK, policyTermsResponse{Terms: s.pipeline.Policy.Terms()})
}

type sinkCounters struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

type traceMetricsResponse struct {
	Enabled  bool                    `json:"enabled"`
	Enqueued uint64                  `json:"enqueued"`
	Dropped  uint64                  `json:"dropped"`
	Sinks    map[string]sinkCounters `json:"sinks"`
}

func (s *Server) handleTraceMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
		return
	}
	resp := traceMetricsResponse{Sinks: map[string]sinkCounters{}}
	if s.emitter != nil {
		m := s.emitter.MetricsSnapshot()
		resp.Enabled = true
		resp.Enqueued = m.Enqueued()
		resp.Dropped = m.Dropped()
		for _, name := range m.SinkNames() {
			resp.Sinks[name] = sinkCounters{Success: m.SinkSuccess(name), Failure: m.SinkFailure(name)}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth.Enabled() {
			apiKey, ok := parseBearerToken(r.Header.Get("Authorization"))
			if !ok || apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Invalid or missing API key", "authentication_error")
				return
			}
			if !s.auth.Allowed(apiKey) {
				writeError(w, http.StatusUnauthorized, "Invalid API key", "authentication_error")
				return
			}
		}
		next(w, r)
	}
}

// parseBearerToken extracts the token from an Authorization: Bearer header.
func parseBearerToken(h string) (string, bool) {
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, message, typ string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: typ}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		redact.Logf("failed to write response: %v", err)
	}
}
