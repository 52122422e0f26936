package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mirzasaddi/expenseai/internal/common"
	"github.com/mirzasaddi/expenseai/internal/ingest"
	"github.com/mirzasaddi/expenseai/internal/model"
	"github.com/mirzasaddi/expenseai/internal/pipeline"
)

// analyzeRequest is the upload payload: raw CSV text plus the original
// filename when known.
type analyzeRequest struct {
	CSV      string `json:"csv"`
	Filename string `json:"filename"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CSV == "" {
		writeError(w, http.StatusBadRequest, "No CSV text received from client")
		return
	}

	outcome, err := s.analyzer.Analyze(r.Context(), req.CSV, req.Filename)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNoDataRows):
			writeError(w, http.StatusBadRequest, "CSV contained no data rows")
		case errors.Is(err, ingest.ErrMissingColumn):
			writeError(w, http.StatusBadRequest, "CSV must have date, description, amount columns")
		case errors.Is(err, ingest.ErrBadAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("analyze failed", "filename", req.Filename, "error", err)
			writeError(w, http.StatusBadGateway, "classification failed")
		}
		return
	}

	// Degraded outcomes are still a success: the client renders raw mode.
	writeJSON(w, http.StatusOK, outcome.Analysis)
}

// reviewResponse wraps the latest record for the review surface.
type reviewResponse struct {
	Analysis  model.Analysis `json:"analysis"`
	Filename  string         `json:"filename"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.LoadLatest(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No analysis records found")
			return
		}
		s.logger.Error("failed to load latest analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load latest analysis")
		return
	}

	writeJSON(w, http.StatusOK, reviewResponse{
		Analysis:  record.Analysis,
		Filename:  record.Filename,
		CreatedAt: record.CreatedAt,
	})
}

// reportsResponse carries the latest rows with a summary derived from them
// at read time.
type reportsResponse struct {
	Filename  string                 `json:"filename"`
	CreatedAt time.Time              `json:"created_at"`
	Summary   *model.Summary         `json:"summary,omitempty"`
	Rows      []model.CategorizedRow `json:"rows,omitempty"`
	Raw       string                 `json:"raw,omitempty"`
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.LoadLatest(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No analysis records found")
			return
		}
		s.logger.Error("failed to load latest analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load latest analysis")
		return
	}

	resp := reportsResponse{
		Filename:  record.Filename,
		CreatedAt: record.CreatedAt,
		Raw:       record.Analysis.Raw,
	}
	if record.Analysis.Rows != nil {
		summary := pipeline.Summarize(record.Analysis.Rows)
		resp.Summary = &summary
		resp.Rows = record.Analysis.Rows
	}

	writeJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "No message provided.")
		return
	}

	reply, err := s.analyzer.Chat(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No analysis records found")
			return
		}
		s.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusBadGateway, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
