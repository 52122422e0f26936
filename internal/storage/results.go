package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mirzasaddi/expenseai/internal/common"
	"github.com/mirzasaddi/expenseai/internal/model"
)

// SaveResult stores one analysis document and returns its assigned id.
// The creation timestamp is assigned here; recency reads order by it with
// id as tie-break.
func (s *SQLiteStorage) SaveResult(ctx context.Context, filename string, analysis model.Analysis) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if !analysis.Structured() && analysis.Raw == "" {
		return "", fmt.Errorf("analysis is empty")
	}

	body, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ai_results (id, created_at, filename, analysis)
		VALUES (?, ?, ?, ?)
	`, id, time.Now().UTC(), nullableString(filename), string(body))
	if err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}

	return id, nil
}

// LoadLatest returns the most recently created record, or
// common.ErrNotFound when nothing has been stored yet.
func (s *SQLiteStorage) LoadLatest(ctx context.Context) (*model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, filename, analysis
		FROM ai_results
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)

	record, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// LoadRecent returns up to limit records ordered by recency.
func (s *SQLiteStorage) LoadRecent(ctx context.Context, limit int) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, filename, analysis
		FROM ai_results
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return records, nil
}

// GetResult returns the record with the given id, or common.ErrNotFound.
func (s *SQLiteStorage) GetResult(ctx context.Context, id string) (*model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, filename, analysis
		FROM ai_results
		WHERE id = ?
	`, id)

	return scanRecord(row)
}

// DeleteResult removes the record with the given id.
func (s *SQLiteStorage) DeleteResult(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.Record, error) {
	var record model.Record
	var filename sql.NullString
	var body string

	if err := row.Scan(&record.ID, &record.CreatedAt, &filename, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan result: %w", err)
	}

	record.Filename = filename.String
	if err := json.Unmarshal([]byte(body), &record.Analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis for record %s: %w", record.ID, err)
	}

	return &record, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
