// Package api exposes robots and admission decisions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rohmanhakim/crawlgate/internal/build"
	"github.com/rohmanhakim/crawlgate/internal/logging"
	"github.com/rohmanhakim/crawlgate/internal/robots"
	"github.com/rohmanhakim/crawlgate/internal/scheduler"
	"github.com/rohmanhakim/crawlgate/pkg/limiter"
)

// PolicyService is the robots side of the API.
type PolicyService interface {
	CheckAllowed(ctx context.Context, rawURL string, agentToken string) robots.Decision
	Lookup(rawURL string) (robots.PolicyInfo, bool)
	Refresh(ctx context.Context, rawURL string) (robots.PolicyInfo, error)
	Invalidate(rawURL string) bool
}

// AdmissionService is the admission side of the API.
type AdmissionService interface {
	SubmitUrlForAgent(ctx context.Context, rawURL string, agentToken string) scheduler.Verdict
	TryAcquire(rawURL string) limiter.AcquireResult
	WaitTime(rawURL string) time.Duration
}

// HTTPMiddleware wraps every routed request; metrics.Collectors provides one.
type HTTPMiddleware interface {
	Middleware(next http.Handler) http.Handler
}

// Server wires HTTP handlers to the policy cache and the scheduler.
type Server struct {
	router    chi.Router
	policies  PolicyService
	admission AdmissionService
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. metricsHandler
// and instrumentation may be nil.
func NewServer(
	policies PolicyService,
	admission AdmissionService,
	metricsHandler http.Handler,
	instrumentation HTTPMiddleware,
	logger *zap.Logger,
) *Server {
	s := &Server{
		policies:  policies,
		admission: admission,
		logger:    logging.OrNop(logger).Named("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if instrumentation != nil {
		r.Use(instrumentation.Middleware)
	}

	r.Get("/healthz", s.healthz)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/robots", func(r chi.Router) {
			r.Get("/", s.checkRobots)
			r.Delete("/", s.invalidatePolicy)
			r.Get("/policy", s.getPolicy)
			r.Post("/refresh", s.refreshPolicy)
		})
		r.Get("/admission", s.waitTime)
		r.Post("/admission", s.acquire)
		r.Post("/admit", s.admit)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: build.FullVersion()})
}

func (s *Server) checkRobots(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	decision := s.policies.CheckAllowed(r.Context(), rawURL, r.URL.Query().Get("agent"))
	writeJSON(w, http.StatusOK, newDecisionResponse(decision))
}

func (s *Server) invalidatePolicy(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"invalidated": s.policies.Invalidate(rawURL)})
}

func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	info, found := s.policies.Lookup(rawURL)
	if !found {
		writeError(w, http.StatusNotFound, "no cached policy for origin")
		return
	}
	writeJSON(w, http.StatusOK, newPolicyResponse(info))
}

func (s *Server) refreshPolicy(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	info, err := s.policies.Refresh(r.Context(), rawURL)
	if err != nil {
		status := http.StatusBadRequest
		if r.Context().Err() != nil {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newPolicyResponse(info))
}

func (s *Server) waitTime(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, waitResponse{WaitMs: s.admission.WaitTime(rawURL).Milliseconds()})
}

func (s *Server) acquire(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	result := s.admission.TryAcquire(rawURL)
	resp := admissionResponse{Granted: result.Granted, RetryAfterMs: result.RetryAfter.Milliseconds()}
	if !result.Granted {
		setRetryAfter(w, result.RetryAfter)
		writeJSON(w, http.StatusTooManyRequests, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) admit(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	verdict := s.admission.SubmitUrlForAgent(r.Context(), rawURL, r.URL.Query().Get("agent"))
	resp := newVerdictResponse(verdict)

	switch {
	case !verdict.Permitted:
		writeJSON(w, http.StatusForbidden, resp)
	case !verdict.Granted:
		setRetryAfter(w, verdict.RetryAfter)
		writeJSON(w, http.StatusTooManyRequests, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func requireURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return "", false
	}
	return rawURL, true
}

// setRetryAfter writes whole seconds, rounded up, as HTTP requires.
func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
