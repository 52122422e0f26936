package model

// CandidateRow is a single transaction parsed from an uploaded CSV, before
// classification. The date is carried as free text: uploads arrive in
// whatever format the user's bank exported and the classifier does not
// require a parsed date. Vendor is always nil at ingestion because the
// source data has no vendor column; the oracle may fill it in.
type CandidateRow struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Vendor      *string `json:"vendor"`
}
