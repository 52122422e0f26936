// Package ingest turns raw uploaded CSV text into candidate transaction rows.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mirzasaddi/expenseai/internal/common"
	"github.com/mirzasaddi/expenseai/internal/model"
)

// Format errors surfaced to the caller before any classification is attempted.
var (
	ErrNoDataRows    = errors.New("no data rows")
	ErrMissingColumn = errors.New("missing required column")
	ErrBadAmount     = errors.New("amount is not numeric")
)

// DefaultCurrency is assigned to every ingested row. Uploads carry no
// currency column and no conversion is performed.
const DefaultCurrency = "USD"

// AmountPolicy controls what happens when a row's amount column does not
// parse to a number.
type AmountPolicy string

const (
	// PolicyNaN propagates a NaN amount downstream. This matches the
	// original upload behavior, where a bad amount silently became
	// non-finite.
	PolicyNaN AmountPolicy = "nan"
	// PolicyZero coerces unparsable amounts to zero.
	PolicyZero AmountPolicy = "zero"
	// PolicyReject fails ingestion on the first unparsable amount.
	PolicyReject AmountPolicy = "reject"
)

// ParsePolicy converts a configuration string to an AmountPolicy.
// An empty string selects PolicyNaN.
func ParsePolicy(s string) (AmountPolicy, error) {
	switch AmountPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyNaN, "":
		return PolicyNaN, nil
	case PolicyZero:
		return PolicyZero, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("%w: unknown amount policy %q", common.ErrInvalidConfig, s)
	}
}

// Parser converts uploaded CSV text into candidate rows.
type Parser struct {
	policy AmountPolicy
}

// NewParser creates a parser with the given amount policy.
func NewParser(policy AmountPolicy) *Parser {
	if policy == "" {
		policy = PolicyNaN
	}
	return &Parser{policy: policy}
}

// Policy returns the parser's amount policy.
func (p *Parser) Policy() AmountPolicy {
	return p.policy
}

// Parse splits text into lines, reads the header, and returns one
// CandidateRow per data line in file order.
//
// Lines are split on any newline style, trimmed, and dropped when empty.
// The header must contain date, description, and amount columns
// (case-insensitive, any order, extra columns ignored). Fields are split on
// commas with no quoting support: quoted fields with embedded commas are
// deliberately unsupported.
func (p *Parser) Parse(text string) ([]model.CandidateRow, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	// Header plus at least one data line.
	if len(lines) < 2 {
		return nil, ErrNoDataRows
	}

	header := strings.Split(lines[0], ",")
	idxDate, idxDesc, idxAmount := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			idxDate = i
		case "description":
			idxDesc = i
		case "amount":
			idxAmount = i
		}
	}

	for _, col := range []struct {
		name string
		idx  int
	}{
		{"date", idxDate},
		{"description", idxDesc},
		{"amount", idxAmount},
	} {
		if col.idx == -1 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col.name)
		}
	}

	rows := make([]model.CandidateRow, 0, len(lines)-1)
	for i, line := range lines[1:] {
		cols := strings.Split(line, ",")

		amount, err := p.parseAmount(field(cols, idxAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		rows = append(rows, model.CandidateRow{
			Date:        field(cols, idxDate),
			Description: field(cols, idxDesc),
			Amount:      amount,
			Currency:    DefaultCurrency,
			Vendor:      nil,
		})
	}

	return rows, nil
}

// field returns the trimmed column at idx, or "" when the line had fewer
// columns than the header.
func field(cols []string, idx int) string {
	if idx >= len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[idx])
}

// parseAmount coerces the amount cell to a number. An empty cell is zero
// regardless of policy; non-numeric text is handled per the configured
// AmountPolicy.
func (p *Parser) parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return amount, nil
	}

	switch p.policy {
	case PolicyZero:
		return 0, nil
	case PolicyReject:
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
	default:
		return math.NaN(), nil
	}
}
