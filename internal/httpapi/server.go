package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/usecase"
)

const dateLayout = "2006-01-02"

// Importer runs one full pipeline pass for a day.
type Importer interface {
	Import(ctx context.Context, day time.Time) (usecase.Report, error)
}

// Server exposes the manual import trigger.
type Server struct {
	importer Importer
	location *time.Location
	logger   *slog.Logger
	server   *http.Server
	now      func() time.Time
}

// New builds the server; location picks "today" for requests without a date.
func New(addr string, importer Importer, location *time.Location, logger *slog.Logger) *Server {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		importer: importer,
		location: location,
		logger:   logger.With("component", "httpapi"),
		now:      time.Now,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /routine/import", s.handleImport)
	mux.HandleFunc("POST /routine/import", s.handleImport)
	return mux
}

// Start blocks until the server stops; a graceful shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type importResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Report  *usecase.Report `json:"report,omitempty"`
}

// handleImport runs the pipeline for ?date=YYYY-MM-DD, or today in the portal timezone.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	day := s.now().In(s.location)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, s.location)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, importResponse{Message: "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	report, err := s.importer.Import(r.Context(), day)
	if errors.Is(err, domain.ErrImportRunning) {
		s.logger.Warn("triggered import rejected, another run is in progress", "day", day.Format(dateLayout))
		writeJSON(w, http.StatusConflict, importResponse{Message: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("triggered import failed", "day", day.Format(dateLayout), "error", err)
		writeJSON(w, http.StatusInternalServerError, importResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Success: true, Report: &report})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
