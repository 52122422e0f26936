package model

import "time"

// CategorizedRow is one transaction after classification.
type CategorizedRow struct {
	CandidateRow
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	NeedsReview  bool    `json:"needsReview"`
	ReviewReason *string `json:"reviewReason"`
}

// CategorySummary is the aggregate amount for a single category.
type CategorySummary struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// Summary aggregates an analysis: row count, total amount, and per-category
// totals with one entry per distinct category, in first-seen row order.
type Summary struct {
	TotalTransactions int               `json:"totalTransactions"`
	TotalAmount       float64           `json:"totalAmount"`
	ByCategory        []CategorySummary `json:"byCategory"`
}

// Analysis is the persisted analysis document. Exactly one of the two forms
// is populated: Summary+Rows for a structured result, or Raw when the oracle
// response could not be parsed into the expected shape.
type Analysis struct {
	Summary *Summary         `json:"summary,omitempty"`
	Rows    []CategorizedRow `json:"rows,omitempty"`
	Raw     string           `json:"raw,omitempty"`
}

// Structured reports whether the analysis carries parsed rows rather than
// the raw fallback text.
func (a Analysis) Structured() bool {
	return a.Rows != nil && a.Summary != nil
}

// Record is one persisted analysis with storage-assigned metadata.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Filename  string    `json:"filename"`
	Analysis  Analysis  `json:"analysis"`
}
