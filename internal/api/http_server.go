// Package api exposes the scheduling engine over HTTP to the
// marketplace frontend and internal tooling.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"coachly/internal/config"
	"coachly/internal/logging"
	"coachly/internal/models"
	"coachly/internal/scheduler"

	"github.com/rs/zerolog"
)

// EventSource reads the coach's external calendar for the combined
// schedule view.
type EventSource interface {
	GetEvents(ctx context.Context, startISO, endISO string) ([]models.CalendarEvent, error)
}

// Exporter produces appointment report files.
type Exporter interface {
	ExportAppointments(ctx context.Context, coachID, startDate, endDate string) (string, error)
}

// HTTPServer wires the scheduler, calendar and export surfaces into
// one authenticated HTTP API.
type HTTPServer struct {
	cfg       config.APIConfig
	scheduler *scheduler.Service
	events    EventSource
	exporter  Exporter
	auth      *HTTPAuth
	server    *http.Server
	logger    zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	sched *scheduler.Service,
	events EventSource,
	exporter Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		scheduler: sched,
		events:    events,
		exporter:  exporter,
		logger:    logging.Component(logger, "http"),
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/coaches/", srv.handleCoaches)
	mux.HandleFunc("/api/v1/appointments", srv.handleAppointments)
	mux.HandleFunc("/api/v1/appointments/", srv.handleAppointment)
	mux.HandleFunc("/api/v1/talents/", srv.handleTalents)
	mux.HandleFunc("/api/v1/calendar/events", srv.handleCalendarEvents)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler exposes the full middleware chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
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

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
