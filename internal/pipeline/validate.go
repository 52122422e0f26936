package pipeline

import (
	"fmt"

	"github.com/mirzasaddi/expenseai/internal/model"
)

// validateRows checks the structured oracle output against the contract:
// one output row per input row, category from the closed set, confidence in
// [0,1], and a review reason whenever a row is flagged. Any violation is a
// shape mismatch; the caller degrades, it never hard-fails.
func validateRows(rows []model.CategorizedRow, inputCount int) error {
	if len(rows) != inputCount {
		return fmt.Errorf("row count mismatch: got %d rows for %d inputs", len(rows), inputCount)
	}

	for i, row := range rows {
		if !model.ValidCategory(row.Category) {
			return fmt.Errorf("row %d: unknown category %q", i, row.Category)
		}
		if row.Confidence < 0 || row.Confidence > 1 {
			return fmt.Errorf("row %d: confidence %v out of range", i, row.Confidence)
		}
		if row.NeedsReview && (row.ReviewReason == nil || *row.ReviewReason == "") {
			return fmt.Errorf("row %d: flagged for review without a reason", i)
		}
	}

	return nil
}

// Summarize recomputes the aggregate summary from categorized rows. The
// stored summary is always derived here rather than trusted from the
// oracle, so summary and rows cannot disagree. Category order follows first
// appearance in the rows; rows with an empty category are grouped under
// Other.
func Summarize(rows []model.CategorizedRow) model.Summary {
	summary := model.Summary{
		TotalTransactions: len(rows),
		ByCategory:        []model.CategorySummary{},
	}

	index := make(map[string]int)
	for _, row := range rows {
		summary.TotalAmount += row.Amount

		category := row.Category
		if category == "" {
			category = string(model.CategoryOther)
		}

		i, ok := index[category]
		if !ok {
			i = len(summary.ByCategory)
			index[category] = i
			summary.ByCategory = append(summary.ByCategory, model.CategorySummary{Category: category})
		}
		summary.ByCategory[i].Total += row.Amount
	}

	return summary
}
