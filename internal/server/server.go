// Package server exposes the analysis pipeline and stored results over a
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mirzasaddi/expenseai/internal/model"
	"github.com/mirzasaddi/expenseai/internal/pipeline"
)

// Store is the slice of the persistence layer the display surfaces need.
type Store interface {
	LoadLatest(ctx context.Context) (*model.Record, error)
	LoadRecent(ctx context.Context, limit int) ([]model.Record, error)
	GetResult(ctx context.Context, id string) (*model.Record, error)
	DeleteResult(ctx context.Context, id string) error
}

// Analyzer runs uploads through the classification pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, csvText, filename string) (*pipeline.Outcome, error)
	Chat(ctx context.Context, message string) (string, error)
}

// Config holds server configuration.
type Config struct {
	Addr          string
	AdminUsername string
	AdminPassword string
}

// Server handles HTTP requests for the expense analysis API.
type Server struct {
	store    Store
	analyzer Analyzer
	logger   *slog.Logger
	cfg      Config
}

// New creates a server with explicitly injected collaborators.
func New(store Store, analyzer Analyzer, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{
		store:    store,
		analyzer: analyzer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/review", s.handleReview)
	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	mux.HandleFunc("POST /api/admin/logout", s.handleLogout)
	mux.Handle("GET /api/results", s.requireAdmin(s.handleListResults))
	mux.Handle("GET /api/results/{id}", s.requireAdmin(s.handleGetResult))
	mux.Handle("DELETE /api/results/{id}", s.requireAdmin(s.handleDeleteResult))

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return withCORS(mux)
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS adds CORS headers for frontend development.
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
