package request

import (
	"strings"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/shopspring/decimal"
)

// FeedOrder selects how the public feed is ranked.
type FeedOrder string

const (
	// FeedByUrgency ranks by urgency score, newest first on ties.
	FeedByUrgency FeedOrder = "urgency"
	// FeedByCritical ranks by Criticality, newest first on ties.
	FeedByCritical FeedOrder = "critical"
	// FeedByNewest ranks by creation time only.
	FeedByNewest FeedOrder = "newest"
)

var criticalGapUnit = decimal.NewFromInt(1000)

// ParseFeedOrder parses a case-insensitive order. Empty means FeedByUrgency.
func ParseFeedOrder(s string) (FeedOrder, error) {
	o := FeedOrder(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "":
		return FeedByUrgency, nil
	case FeedByUrgency, FeedByCritical, FeedByNewest:
		return o, nil
	}
	return "", domain.NewValidationError("sort", "must be urgency, critical or newest")
}

// Criticality is the urgency score plus the unfunded gap counted in
// thousands. Over-funded requests score below their urgency.
func (r Request) Criticality() float64 {
	gap, _ := r.RequestedAmount.Sub(r.AmountRaised).Div(criticalGapUnit).Float64()
	return r.UrgencyScore + gap
}

// Compare orders a before b (negative), after b (positive) or as equal.
// Unknown orders rank like FeedByUrgency.
func (o FeedOrder) Compare(a, b Request) int {
	newest := b.CreatedAt.Compare(a.CreatedAt)
	var sa, sb float64
	switch o {
	case FeedByNewest:
		return newest
	case FeedByCritical:
		sa, sb = a.Criticality(), b.Criticality()
	default:
		sa, sb = a.UrgencyScore, b.UrgencyScore
	}
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	}
	return newest
}
