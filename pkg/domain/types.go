package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as plain JSON numbers, matching the persisted ledger layout.
	decimal.MarshalJSONWithoutQuotes = true
}

// Decision is an administrator verdict on a pending user or request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is one of the supported decisions.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// ParseDecision parses a case-insensitive decision string.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", NewValidationError("decision", "must be approved or rejected")
	}
	return d, nil
}

// NewID returns a fresh identifier carrying the given type prefix, e.g. "r_".
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}
