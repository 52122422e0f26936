// Package pipeline orchestrates classification of ingested transactions:
// it builds the oracle prompt, submits the rows, validates the structured
// response, recomputes aggregates, and persists the result.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mirzasaddi/expenseai/internal/ingest"
	"github.com/mirzasaddi/expenseai/internal/llm"
	"github.com/mirzasaddi/expenseai/internal/model"
)

// Oracle is the narrow slice of the LLM client the pipeline needs.
type Oracle interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Store is the narrow slice of the persistence layer the pipeline needs.
// Saves are fire-and-forget: a failure is logged, never surfaced.
type Store interface {
	SaveResult(ctx context.Context, filename string, analysis model.Analysis) (string, error)
	LoadLatest(ctx context.Context) (*model.Record, error)
}

// Status is the terminal state of one upload.
type Status string

const (
	// StatusPersisted means a well-formed structured result was produced.
	StatusPersisted Status = "persisted"
	// StatusDegraded means the oracle response did not match the expected
	// shape; the raw text is carried instead of structured rows.
	StatusDegraded Status = "degraded"
)

// Outcome is the result of one upload.
type Outcome struct {
	Status   Status
	Analysis model.Analysis
	// RecordID is the persisted record's id, or empty when the save
	// attempt failed.
	RecordID string
}

// Pipeline classifies candidate rows through the oracle.
type Pipeline struct {
	oracle Oracle
	store  Store
	parser *ingest.Parser
	logger *slog.Logger
}

// New creates a pipeline with explicitly injected collaborators.
func New(oracle Oracle, store Store, parser *ingest.Parser, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		oracle: oracle,
		store:  store,
		parser: parser,
		logger: logger,
	}
}

// Analyze runs the full per-upload flow: ingest the CSV text, classify the
// rows, persist the result. Format and transport failures return an error;
// an unparseable oracle response degrades to a raw-text result instead.
func (p *Pipeline) Analyze(ctx context.Context, csvText, filename string) (*Outcome, error) {
	rows, err := p.parser.Parse(csvText)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ingest.ErrNoDataRows
	}

	outcome, err := p.Classify(ctx, rows)
	if err != nil {
		return nil, err
	}

	id, err := p.store.SaveResult(ctx, filename, outcome.Analysis)
	if err != nil {
		// Durability degrades silently; the caller still gets the result.
		p.logger.Error("failed to persist analysis",
			"filename", filename,
			"error", err)
	} else {
		outcome.RecordID = id
		p.logger.Info("analysis persisted",
			"record_id", id,
			"filename", filename,
			"status", outcome.Status)
	}

	return outcome, nil
}

// Classify submits rows to the oracle in a single synchronous request and
// validates the structured response. No retries and no streaming: each
// upload is one attempt.
func (p *Pipeline) Classify(ctx context.Context, rows []model.CandidateRow) (*Outcome, error) {
	if len(rows) == 0 {
		return nil, ingest.ErrNoDataRows
	}

	userPrompt, err := buildClassifyPrompt(rows)
	if err != nil {
		return nil, err
	}

	text, err := p.oracle.Complete(ctx, llm.Request{
		System:      classifySystemPrompt(),
		User:        userPrompt,
		Temperature: classifyTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}

	analysis, err := parseResult(text, len(rows))
	if err != nil {
		p.logger.Warn("oracle response rejected, keeping raw output",
			"rows", len(rows),
			"reason", err)
		return &Outcome{
			Status:   StatusDegraded,
			Analysis: model.Analysis{Raw: text},
		}, nil
	}

	p.logger.Info("rows classified",
		"rows", len(rows),
		"total_amount", analysis.Summary.TotalAmount)

	return &Outcome{
		Status:   StatusPersisted,
		Analysis: analysis,
	}, nil
}

// Chat answers a question about the most recent analysis.
func (p *Pipeline) Chat(ctx context.Context, message string) (string, error) {
	record, err := p.store.LoadLatest(ctx)
	if err != nil {
		return "", err
	}

	systemPrompt, err := buildChatSystemPrompt(record.Analysis)
	if err != nil {
		return "", err
	}

	reply, err := p.oracle.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        message,
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}

	return reply, nil
}

// parseResult parses the oracle text as the structured analysis shape and
// validates it against the input. The returned summary is always recomputed
// from the rows; the oracle's own arithmetic is discarded.
func parseResult(text string, inputCount int) (model.Analysis, error) {
	var parsed struct {
		Summary *model.Summary         `json:"summary"`
		Rows    []model.CategorizedRow `json:"rows"`
	}

	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &parsed); err != nil {
		return model.Analysis{}, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if err := validateRows(parsed.Rows, inputCount); err != nil {
		return model.Analysis{}, err
	}

	summary := Summarize(parsed.Rows)
	return model.Analysis{
		Summary: &summary,
		Rows:    parsed.Rows,
	}, nil
}
