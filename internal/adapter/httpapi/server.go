// Package httpapi exposes the visibility engine over HTTP: liveness,
// readiness and Prometheus metrics endpoints plus a small v1 JSON API for
// visibility checks, night windows, grid scans and calendar assembly.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/grid"
)

// Engine is the slice of the visibility engine the API serves.
type Engine interface {
	Visibility(ctx context.Context, obs astro.Observer, date time.Time) (astro.VisibilityResult, error)
	Night(obs astro.Observer, date time.Time) (astro.NightWindow, bool)
	FullGrid(ctx context.Context, date time.Time, anchor *astro.Observer) ([]grid.Cell, error)
	Calendar(ctx context.Context, obs astro.Observer, start time.Time, months int, progress func(float64)) (*calendar.CalendarResult, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Geocoder resolves a place name to observer coordinates. A nil Geocoder
// means the city query parameter is rejected.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (astro.Observer, error)
}

// MonthPublisher broadcasts assembled months to downstream consumers. A nil
// publisher disables publishing.
type MonthPublisher interface {
	PublishCalendar(ctx context.Context, res *calendar.CalendarResult) error
}

// Server wraps an http.Server with health, metrics and v1 API routes.
type Server struct {
	httpServer *http.Server
	engine     Engine
	geocoder   Geocoder
	publisher  MonthPublisher
	logger     *slog.Logger
}

// NewServer builds the HTTP server with all routes registered. geo and pub
// may be nil when geocoding or month publishing is disabled.
func NewServer(addr string, eng Engine, ready ReadinessChecker, geo Geocoder, pub MonthPublisher, logger *slog.Logger) *Server {
	s := &Server{
		engine:    eng,
		geocoder:  geo,
		publisher: pub,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/visibility", s.handleVisibility)
	mux.HandleFunc("GET /v1/night", s.handleNight)
	mux.HandleFunc("GET /v1/grid", s.handleGrid)
	mux.HandleFunc("GET /v1/calendar", s.handleCalendar)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		// Calendar assembly with grid fallbacks can run for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP makes the server usable directly in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
