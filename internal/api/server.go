// Package api exposes the hydration core over HTTP, standing in for
// the mobile UI layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"hydromate/internal/notify"
	"hydromate/internal/report"
	"hydromate/internal/service"
	"hydromate/internal/store"
)

// SchedulerStatus is the scheduling collaborator the API reads state
// from and pokes on demand.
type SchedulerStatus interface {
	Reconcile(ctx context.Context) error
	PermissionStatus(ctx context.Context) notify.PermissionStatus
	ScheduledIDs() []string
}

// HTTPServer serves the hydration API.
type HTTPServer struct {
	svc       *service.Service
	reports   *report.Service
	history   *store.IntakeStore
	scheduler SchedulerStatus
	logger    *zerolog.Logger
	server    *http.Server
}

// NewHTTPServer creates the API server listening on addr.
func NewHTTPServer(
	addr string,
	svc *service.Service,
	reports *report.Service,
	history *store.IntakeStore,
	scheduler SchedulerStatus,
	logger *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		svc:       svc,
		reports:   reports,
		history:   history,
		scheduler: scheduler,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/profile", s.handleProfile)
	mux.HandleFunc("/api/goal", s.handleGoal)
	mux.HandleFunc("/api/reminders", s.handleReminders)
	mux.HandleFunc("/api/reminders/", s.handleReminderByID)
	mux.HandleFunc("/api/intake", s.handleIntake)
	mux.HandleFunc("/api/intake/today", s.handleIntakeToday)
	mux.HandleFunc("/api/intake/", s.handleIntakeByID)
	mux.HandleFunc("/api/history/daily", s.handleHistoryDaily)
	mux.HandleFunc("/api/history/weekly", s.handleHistoryWeekly)
	mux.HandleFunc("/api/history/monthly", s.handleHistoryMonthly)
	mux.HandleFunc("/api/report/stats", s.handleReportStats)
	mux.HandleFunc("/api/report/export", s.handleReportExport)
	mux.HandleFunc("/api/reconcile", s.handleReconcile)
	mux.HandleFunc("/api/notifications/status", s.handleNotificationStatus)
	mux.HandleFunc("/api/notifications/test", s.handleNotificationTest)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the server until it is shut down.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http api: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var bandErr *service.GoalBandError
	switch {
	case errors.Is(err, service.ErrGoalNotNumeric),
		errors.Is(err, service.ErrUnknownChoice),
		errors.Is(err, service.ErrUnsupportedUnit),
		errors.Is(err, store.ErrInvalidAmount),
		errors.As(err, &bandErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrProfileMissing):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// Ready once the stores answer; a cheap read exercises the pipeline.
	if _, err := s.svc.TodayTotal(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
