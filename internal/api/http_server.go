package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"villamar/internal/config"
	"villamar/internal/domain"
	"villamar/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer exposes the reservation REST API plus the public availability
// endpoints and the uploads directory.
type HTTPServer struct {
	cfg      *config.Config
	service  domain.ReservationService
	state    domain.StateRepository
	files    domain.FileStore
	cottages domain.Repository
	auth     *JWTAuth
	server   *http.Server
	limiters sync.Map // map[string]*rate.Limiter
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, svc domain.ReservationService, state domain.StateRepository, files domain.FileStore, repo domain.Repository, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		service:  svc,
		state:    state,
		files:    files,
		cottages: repo,
		auth:     NewJWTAuth(cfg.Auth),
		logger:   logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/reservations/create-reservation", srv.auth.Wrap(srv.handleCreateReservation))
	mux.HandleFunc("/reservations/user", srv.auth.Wrap(srv.handleUserReservations))
	mux.HandleFunc("/reservations/cancel/", srv.auth.Wrap(srv.handleCancelReservation))

	mux.HandleFunc("/api/v1/reservations/confirm/", srv.auth.WrapAdmin(srv.handleConfirmReservation))
	mux.HandleFunc("/api/v1/export/reservations", srv.auth.WrapAdmin(srv.handleExportReservations))

	mux.HandleFunc("/api/v1/availability/bulk", srv.handleAvailabilityBulk)
	mux.HandleFunc("/api/v1/availability/", srv.handleAvailability)
	mux.HandleFunc("/api/v1/cottages", srv.handleCottages)
	mux.HandleFunc("/healthz", srv.handleHealth)

	mux.Handle(cfg.Uploads.PublicPath,
		http.StripPrefix(cfg.Uploads.PublicPath, http.FileServer(http.Dir(files.Dir()))))

	handler := srv.loggingMiddleware(srv.rateLimitMiddleware(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the composed handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// rateLimitMiddleware applies a per-client token bucket keyed by remote
// host. The per-user admission limit is enforced separately in the create
// handler through the state repository.
func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit.RPS > 0 {
			lim := s.getLimiter(clientKey(r))
			if !lim.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (s *HTTPServer) getLimiter(key string) *rate.Limiter {
	if v, ok := s.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := s.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(s.cfg.RateLimit.RPS), burst)
	actual, loaded := s.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses path parameters so the metric cardinality stays
// bounded.
func endpointLabel(path string) string {
	for _, prefix := range []string{
		"/reservations/cancel/",
		"/api/v1/reservations/confirm/",
		"/api/v1/availability/",
	} {
		if strings.HasPrefix(path, prefix) && path != prefix {
			return prefix + ":param"
		}
	}
	if strings.HasPrefix(path, "/uploads/") {
		return "/uploads/:file"
	}
	return path
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"success": false, "message": message})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
