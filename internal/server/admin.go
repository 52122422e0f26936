package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mirzasaddi/expenseai/internal/common"
)

// adminCookie gates the admin surfaces. HttpOnly so page scripts can't
// read it.
const adminCookie = "admin_auth"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    "1",
		Path:     "/",
		MaxAge:   int(time.Hour.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// requireAdmin rejects requests without a valid admin cookie.
func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookie)
		if err != nil || cookie.Value != "1" {
			writeError(w, http.StatusUnauthorized, "admin login required")
			return
		}
		next(w, r)
	})
}

// resultSummary is one row of the admin listing; the analysis document
// itself is fetched per record.
type resultSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Filename  string    `json:"filename"`
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.store.LoadRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list results", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	results := make([]resultSummary, 0, len(records))
	for _, rec := range records {
		results = append(results, resultSummary{
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt,
			Filename:  rec.Filename,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"limit":   limit,
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetResult(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		s.logger.Error("failed to load result", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load result")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteResult(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		s.logger.Error("failed to delete result", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete result")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
