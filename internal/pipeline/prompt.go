package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mirzasaddi/expenseai/internal/model"
)

// classifyTemperature leans toward deterministic output for classification.
const classifyTemperature = 0.1

// chatTemperature allows a little variety for conversational answers.
const chatTemperature = 0.4

// classifySystemPrompt fixes the oracle contract: strict JSON in the
// analysis shape, closed category set, unsure rows flagged for review.
func classifySystemPrompt() string {
	names := make([]string, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		names = append(names, fmt.Sprintf("%q", string(c)))
	}

	return fmt.Sprintf(`You are an AI assistant for an accounting firm.
Return STRICT JSON matching this shape:

{
  "summary": {
    "totalTransactions": number,
    "totalAmount": number,
    "byCategory": [{"category": string, "total": number}]
  },
  "rows": [{
    "date": string,
    "description": string,
    "amount": number,
    "currency": string,
    "vendor": string or null,
    "category": string,
    "confidence": number,
    "needsReview": boolean,
    "reviewReason": string or null
  }]
}

Rules:
- ONLY output valid JSON. No explanation text.
- "category" must be one of: %s.
- Emit exactly one output row per input row, in the same order.
- "confidence" is a number between 0 and 1.
- If you are not sure, choose "Other" and set needsReview=true with a non-null reviewReason.`,
		strings.Join(names, ", "))
}

// buildClassifyPrompt serializes the candidate rows as the user payload.
// NaN amounts are encoded as null: JSON cannot express NaN, and the
// ingestion policy may let non-finite amounts through.
func buildClassifyPrompt(rows []model.CandidateRow) (string, error) {
	payload := make([]map[string]any, len(rows))
	for i, r := range rows {
		amount := any(r.Amount)
		if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
			amount = nil
		}
		payload[i] = map[string]any{
			"date":        r.Date,
			"description": r.Description,
			"amount":      amount,
			"currency":    r.Currency,
			"vendor":      r.Vendor,
		}
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode rows: %w", err)
	}

	return "Here is the list of expenses as JSON array:\n" + string(body), nil
}

// buildChatSystemPrompt embeds the latest analysis so the oracle can answer
// questions about the user's spending.
func buildChatSystemPrompt(analysis model.Analysis) (string, error) {
	body, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}

	return fmt.Sprintf(`You are an expense analysis assistant.
Use the provided analysis JSON to answer questions about the user's spending.
Be specific and refer to categories, amounts, and dates when helpful.

User's latest expense analysis:
%s`, string(body)), nil
}
