package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirzasaddi/expenseai/internal/common"
	"github.com/mirzasaddi/expenseai/internal/ingest"
	"github.com/mirzasaddi/expenseai/internal/model"
	"github.com/mirzasaddi/expenseai/internal/pipeline"
)

type fakeStore struct {
	records []model.Record
	deleted []string
	loadErr error
}

func (f *fakeStore) LoadLatest(_ context.Context) (*model.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if len(f.records) == 0 {
		return nil, common.ErrNotFound
	}
	return &f.records[0], nil
}

func (f *fakeStore) LoadRecent(_ context.Context, limit int) ([]model.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func (f *fakeStore) GetResult(_ context.Context, id string) (*model.Record, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) DeleteResult(_ context.Context, id string) error {
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return common.ErrNotFound
}

type fakeAnalyzer struct {
	analyzeCalls int
	chatCalls    int
	lastCSV      string
	lastMessage  string
	outcome      *pipeline.Outcome
	analyzeErr   error
	reply        string
	chatErr      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, csvText, _ string) (*pipeline.Outcome, error) {
	f.analyzeCalls++
	f.lastCSV = csvText
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.outcome, nil
}

func (f *fakeAnalyzer) Chat(_ context.Context, message string) (string, error) {
	f.chatCalls++
	f.lastMessage = message
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.reply, nil
}

func newTestServer(store *fakeStore, analyzer *fakeAnalyzer) *Server {
	return New(store, analyzer, Config{
		AdminUsername: "admin",
		AdminPassword: "admin123",
	}, slog.Default())
}

func structuredRecord(id string, created time.Time) model.Record {
	summary := model.Summary{
		TotalTransactions: 2,
		TotalAmount:       47.75,
		ByCategory: []model.CategorySummary{
			{Category: "Travel", Total: 42.50},
			{Category: "Meals", Total: 5.25},
		},
	}
	return model.Record{
		ID:        id,
		CreatedAt: created,
		Filename:  "expenses.csv",
		Analysis: model.Analysis{
			Summary: &summary,
			Rows: []model.CategorizedRow{
				{
					CandidateRow: model.CandidateRow{Date: "2024-01-15", Description: "Uber ride", Amount: 42.50, Currency: "USD"},
					Category:     "Travel",
					Confidence:   0.95,
				},
				{
					CandidateRow: model.CandidateRow{Date: "2024-01-16", Description: "Office coffee", Amount: 5.25, Currency: "USD"},
					Category:     "Meals",
					Confidence:   0.9,
				},
			},
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("structured result", func(t *testing.T) {
		record := structuredRecord("rec-1", time.Now())
		analyzer := &fakeAnalyzer{outcome: &pipeline.Outcome{
			Status:   pipeline.StatusPersisted,
			Analysis: record.Analysis,
			RecordID: "rec-1",
		}}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/analyze", map[string]string{
			"csv":      "date,description,amount\n2024-01-15,Uber ride,42.50",
			"filename": "expenses.csv",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, analyzer.analyzeCalls)

		var got model.Analysis
		decodeBody(t, rec, &got)
		require.NotNil(t, got.Summary)
		assert.Equal(t, 2, got.Summary.TotalTransactions)
		assert.Len(t, got.Rows, 2)
		assert.Empty(t, got.Raw)
	})

	t.Run("degraded result is still 200", func(t *testing.T) {
		analyzer := &fakeAnalyzer{outcome: &pipeline.Outcome{
			Status:   pipeline.StatusDegraded,
			Analysis: model.Analysis{Raw: "I cannot categorize these."},
		}}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/analyze", map[string]string{
			"csv": "date,description,amount\n2024-01-15,Uber ride,42.50",
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var got model.Analysis
		decodeBody(t, rec, &got)
		assert.Equal(t, "I cannot categorize these.", got.Raw)
		assert.Nil(t, got.Summary)
		assert.Nil(t, got.Rows)
	})

	t.Run("empty csv rejected before pipeline", func(t *testing.T) {
		analyzer := &fakeAnalyzer{}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/analyze", map[string]string{"csv": ""})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, analyzer.analyzeCalls)
	})

	t.Run("format errors map to 400", func(t *testing.T) {
		tests := []struct {
			name    string
			err     error
			message string
		}{
			{
				name:    "no data rows",
				err:     ingest.ErrNoDataRows,
				message: "CSV contained no data rows",
			},
			{
				name:    "missing column",
				err:     fmt.Errorf("%w: amount", ingest.ErrMissingColumn),
				message: "CSV must have date, description, amount columns",
			},
			{
				name: "bad amount",
				err:  fmt.Errorf("%w: row 3: %q", ingest.ErrBadAmount, "abc"),
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				analyzer := &fakeAnalyzer{analyzeErr: tt.err}
				srv := newTestServer(&fakeStore{}, analyzer)

				rec := postJSON(t, srv.Routes(), "/api/analyze", map[string]string{
					"csv": "date,description,amount",
				})

				require.Equal(t, http.StatusBadRequest, rec.Code)
				if tt.message != "" {
					var got map[string]string
					decodeBody(t, rec, &got)
					assert.Equal(t, tt.message, got["error"])
				}
			})
		}
	})

	t.Run("oracle failure maps to 502", func(t *testing.T) {
		analyzer := &fakeAnalyzer{analyzeErr: fmt.Errorf("oracle request failed: connection refused")}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/analyze", map[string]string{
			"csv": "date,description,amount\n2024-01-15,Uber ride,42.50",
		})

		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleReview(t *testing.T) {
	t.Run("returns latest record", func(t *testing.T) {
		created := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
		store := &fakeStore{records: []model.Record{structuredRecord("rec-1", created)}}
		srv := newTestServer(store, &fakeAnalyzer{})

		req := httptest.NewRequest(http.MethodGet, "/api/review", nil)
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got reviewResponse
		decodeBody(t, rec, &got)
		assert.Equal(t, "expenses.csv", got.Filename)
		assert.True(t, got.CreatedAt.Equal(created))
		require.NotNil(t, got.Analysis.Summary)
		assert.InDelta(t, 47.75, got.Analysis.Summary.TotalAmount, 0.001)
	})

	t.Run("404 when no records", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		req := httptest.NewRequest(http.MethodGet, "/api/review", nil)
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)

		var got map[string]string
		decodeBody(t, rec, &got)
		assert.Equal(t, "No analysis records found", got["error"])
	})
}

func TestHandleReports(t *testing.T) {
	t.Run("summary recomputed from rows", func(t *testing.T) {
		record := structuredRecord("rec-1", time.Now())
		// A stale stored summary must not leak through.
		record.Analysis.Summary = &model.Summary{TotalTransactions: 99, TotalAmount: 9999}
		store := &fakeStore{records: []model.Record{record}}
		srv := newTestServer(store, &fakeAnalyzer{})

		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got reportsResponse
		decodeBody(t, rec, &got)
		require.NotNil(t, got.Summary)
		assert.Equal(t, 2, got.Summary.TotalTransactions)
		assert.InDelta(t, 47.75, got.Summary.TotalAmount, 0.001)
		require.Len(t, got.Summary.ByCategory, 2)
		assert.Equal(t, "Travel", got.Summary.ByCategory[0].Category)
		assert.Len(t, got.Rows, 2)
	})

	t.Run("raw record has no summary", func(t *testing.T) {
		store := &fakeStore{records: []model.Record{{
			ID:        "rec-raw",
			CreatedAt: time.Now(),
			Analysis:  model.Analysis{Raw: "unparseable"},
		}}}
		srv := newTestServer(store, &fakeAnalyzer{})

		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got reportsResponse
		decodeBody(t, rec, &got)
		assert.Nil(t, got.Summary)
		assert.Nil(t, got.Rows)
		assert.Equal(t, "unparseable", got.Raw)
	})
}

func TestHandleChat(t *testing.T) {
	t.Run("returns reply", func(t *testing.T) {
		analyzer := &fakeAnalyzer{reply: "You spent most on Travel."}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/chat", map[string]string{
			"message": "What did I spend most on?",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "What did I spend most on?", analyzer.lastMessage)

		var got map[string]string
		decodeBody(t, rec, &got)
		assert.Equal(t, "You spent most on Travel.", got["reply"])
	})

	t.Run("empty message rejected", func(t *testing.T) {
		analyzer := &fakeAnalyzer{}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/chat", map[string]string{"message": "   "})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, analyzer.chatCalls)
	})

	t.Run("404 when nothing analyzed yet", func(t *testing.T) {
		analyzer := &fakeAnalyzer{chatErr: common.ErrNotFound}
		srv := newTestServer(&fakeStore{}, analyzer)

		rec := postJSON(t, srv.Routes(), "/api/chat", map[string]string{"message": "hello"})

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminAuth(t *testing.T) {
	login := func(t *testing.T, handler http.Handler, username, password string) *httptest.ResponseRecorder {
		t.Helper()
		return postJSON(t, handler, "/api/admin/login", map[string]string{
			"username": username,
			"password": password,
		})
	}

	t.Run("login sets cookie", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		rec := login(t, srv.Routes(), "admin", "admin123")

		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, adminCookie, cookie.Name)
		assert.Equal(t, "1", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, 3600, cookie.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	})

	t.Run("wrong credentials rejected", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		tests := []struct {
			username string
			password string
		}{
			{"admin", "wrong"},
			{"notadmin", "admin123"},
			{"", ""},
		}
		for _, tt := range tests {
			rec := login(t, srv.Routes(), tt.username, tt.password)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
		}
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		rec := postJSON(t, srv.Routes(), "/api/admin/logout", map[string]string{})

		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, adminCookie, cookies[0].Name)
		assert.Less(t, cookies[0].MaxAge, 0)
	})

	t.Run("results require cookie", func(t *testing.T) {
		store := &fakeStore{records: []model.Record{structuredRecord("rec-1", time.Now())}}
		srv := newTestServer(store, &fakeAnalyzer{})
		handler := srv.Routes()

		req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/results", nil)
		req.AddCookie(&http.Cookie{Name: adminCookie, Value: "1"})
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Results []resultSummary `json:"results"`
			Limit   int             `json:"limit"`
		}
		decodeBody(t, rec, &got)
		require.Len(t, got.Results, 1)
		assert.Equal(t, "rec-1", got.Results[0].ID)
		assert.Equal(t, 20, got.Limit)
	})

	t.Run("bogus cookie value rejected", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
		req.AddCookie(&http.Cookie{Name: adminCookie, Value: "yes"})
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminResults(t *testing.T) {
	withAdmin := func(req *http.Request) *http.Request {
		req.AddCookie(&http.Cookie{Name: adminCookie, Value: "1"})
		return req
	}

	t.Run("limit parameter", func(t *testing.T) {
		store := &fakeStore{records: []model.Record{
			structuredRecord("rec-1", time.Now()),
			structuredRecord("rec-2", time.Now().Add(-time.Hour)),
			structuredRecord("rec-3", time.Now().Add(-2*time.Hour)),
		}}
		srv := newTestServer(store, &fakeAnalyzer{})

		req := withAdmin(httptest.NewRequest(http.MethodGet, "/api/results?limit=2", nil))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Results []resultSummary `json:"results"`
		}
		decodeBody(t, rec, &got)
		assert.Len(t, got.Results, 2)
	})

	t.Run("get result by id", func(t *testing.T) {
		store := &fakeStore{records: []model.Record{structuredRecord("rec-1", time.Now())}}
		srv := newTestServer(store, &fakeAnalyzer{})

		req := withAdmin(httptest.NewRequest(http.MethodGet, "/api/results/rec-1", nil))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got model.Record
		decodeBody(t, rec, &got)
		assert.Equal(t, "rec-1", got.ID)
		assert.Len(t, got.Analysis.Rows, 2)
	})

	t.Run("get missing result", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

		req := withAdmin(httptest.NewRequest(http.MethodGet, "/api/results/nope", nil))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete result", func(t *testing.T) {
		store := &fakeStore{records: []model.Record{structuredRecord("rec-1", time.Now())}}
		srv := newTestServer(store, &fakeAnalyzer{})

		req := withAdmin(httptest.NewRequest(http.MethodDelete, "/api/results/rec-1", nil))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"rec-1"}, store.deleted)

		req = withAdmin(httptest.NewRequest(http.MethodDelete, "/api/results/rec-1", nil))
		rec = httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeStore{}, &fakeAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
