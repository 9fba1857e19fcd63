package request_test

import (
	"slices"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedOrder(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]request.FeedOrder{
		"":         request.FeedByUrgency,
		"urgency":  request.FeedByUrgency,
		"CRITICAL": request.FeedByCritical,
		" newest ": request.FeedByNewest,
	} {
		got, err := request.ParseFeedOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := request.ParseFeedOrder("oldest")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCriticality(t *testing.T) {
	t.Parallel()
	r := request.Request{
		UrgencyScore:    50,
		RequestedAmount: decimal.NewFromInt(48000),
		AmountRaised:    decimal.NewFromInt(18200),
	}
	assert.InDelta(t, 79.8, r.Criticality(), 0.0001)

	r.AmountRaised = decimal.NewFromInt(50000)
	assert.InDelta(t, 48.0, r.Criticality(), 0.0001, "over-funding lowers the score")
}

func TestFeedOrderCompare(t *testing.T) {
	t.Parallel()
	// calm is more urgent but almost funded; gap has the larger shortfall.
	calm := request.Request{
		ID:              "calm",
		UrgencyScore:    75,
		RequestedAmount: decimal.NewFromInt(1000),
		AmountRaised:    decimal.NewFromInt(900),
		CreatedAt:       now,
	}
	gap := request.Request{
		ID:              "gap",
		UrgencyScore:    50,
		RequestedAmount: decimal.NewFromInt(40000),
		AmountRaised:    decimal.Zero,
		CreatedAt:       now.Add(-time.Hour),
	}
	fresh := request.Request{
		ID:              "fresh",
		UrgencyScore:    25,
		RequestedAmount: decimal.NewFromInt(500),
		AmountRaised:    decimal.Zero,
		CreatedAt:       now.Add(time.Hour),
	}

	ids := func(order request.FeedOrder) []string {
		rs := []request.Request{gap, fresh, calm}
		slices.SortStableFunc(rs, order.Compare)
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"calm", "gap", "fresh"}, ids(request.FeedByUrgency))
	assert.Equal(t, []string{"gap", "calm", "fresh"}, ids(request.FeedByCritical))
	assert.Equal(t, []string{"fresh", "calm", "gap"}, ids(request.FeedByNewest))

	tie := calm
	tie.ID = "tie"
	tie.CreatedAt = now.Add(time.Minute)
	assert.Negative(t, request.FeedByUrgency.Compare(tie, calm), "newest first on equal scores")
}
