package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/donation"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPersister struct{ err error }

func (f failingPersister) Load(context.Context) ([]byte, error) { return nil, f.err }
func (f failingPersister) Save(context.Context, []byte) error   { return f.err }

func seed(t *testing.T) ledger.Snapshot {
	t.Helper()
	s, err := ledger.Seed()
	require.NoError(t, err)
	return s
}

func TestSeedIsWellFormed(t *testing.T) {
	t.Parallel()
	s := seed(t)
	require.NoError(t, s.Validate())
	assert.Empty(t, s.Unreconciled())

	for _, u := range s.Users {
		if u.IsAdmin() {
			assert.True(t, u.IsVerified, "admin %s must be verified", u.ID)
		}
	}
	for _, r := range s.Requests {
		if r.Status == request.StatusApproved {
			assert.NotNil(t, r.ApprovedAt, "approved request %s needs approved_at", r.ID)
		}
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	t.Parallel()
	p := ledger.NewMemoryPersister()
	fallback := seed(t)

	first := ledger.Load(context.Background(), p, fallback, nil)
	second := ledger.Load(context.Background(), p, fallback, nil)
	assert.Equal(t, first, second)

	data, err := ledger.Encode(first)
	require.NoError(t, err)
	require.NoError(t, p.Save(context.Background(), data))

	third := ledger.Load(context.Background(), p, ledger.Snapshot{}, nil)
	fourth := ledger.Load(context.Background(), p, ledger.Snapshot{}, nil)
	assert.Equal(t, third, fourth)
	assert.Equal(t, fallback.Version, third.Version)
	assert.Len(t, third.Requests, len(fallback.Requests))
}

func TestLoadFallsBackToSeed(t *testing.T) {
	t.Parallel()
	fallback := seed(t)

	tests := []struct {
		name string
		p    ledger.Persister
	}{
		{"read error", failingPersister{err: errors.New("connection refused")}},
		{"not json", memoryWith(t, `{"users": [`)},
		{"empty document", memoryWith(t, "   ")},
		{"broken invariant", memoryWith(t, `{"version": 3, "users": [
			{"user_id": "u_1", "email": "a@b.io", "role": "STUDENT",
			 "verification_status": "pending", "is_verified": true}]}`)},
		{"orphan donation", memoryWith(t, `{"version": 3, "donations": [
			{"donation_id": "d_1", "request_id": "r_gone", "amount": 10}]}`)},
		{"unknown donor", memoryWith(t, driftedSeed(t, func(s *ledger.Snapshot) {
			s.Donations[0].DonorID = "u_ghost"
		}))},
		{"unreconciled total", memoryWith(t, driftedSeed(t, func(s *ledger.Snapshot) {
			s.Requests[0].AmountRaised = s.Requests[0].AmountRaised.Add(decimal.NewFromInt(1))
		}))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ledger.Load(context.Background(), tc.p, fallback, nil)
			assert.Equal(t, fallback.Version, got.Version)
			assert.Len(t, got.Users, len(fallback.Users))
		})
	}
}

// driftedSeed encodes the seed at a later version after edit has broken it.
func driftedSeed(t *testing.T, edit func(*ledger.Snapshot)) string {
	t.Helper()
	s := seed(t)
	s.Version += 10
	edit(&s)
	data, err := ledger.Encode(s)
	require.NoError(t, err)
	return string(data)
}

func memoryWith(t *testing.T, doc string) *ledger.MemoryPersister {
	t.Helper()
	p := ledger.NewMemoryPersister()
	require.NoError(t, p.Save(context.Background(), []byte(doc)))
	return p
}

func TestDecodeRejectsDuplicateEmails(t *testing.T) {
	t.Parallel()
	doc := `{"version": 1, "users": [
		{"user_id": "u_1", "email": "Same@x.io", "role": "STUDENT", "verification_status": "pending"},
		{"user_id": "u_2", "email": "same@x.io", "role": "STUDENT", "verification_status": "pending"}]}`
	_, err := ledger.Decode([]byte(doc))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestFeedOrdering(t *testing.T) {
	t.Parallel()
	feed := seed(t).Feed(request.FeedByUrgency)
	require.NotEmpty(t, feed)

	for i := 1; i < len(feed); i++ {
		prev, cur := feed[i-1], feed[i]
		assert.GreaterOrEqual(t, prev.UrgencyScore, cur.UrgencyScore)
		if prev.UrgencyScore == cur.UrgencyScore {
			assert.False(t, cur.CreatedAt.After(prev.CreatedAt))
		}
	}
	for _, r := range feed {
		assert.Equal(t, request.StatusApproved, r.Status)
		if r.HideIdentity {
			assert.Equal(t, request.AnonymousName, r.StudentName)
			assert.Empty(t, r.UserID)
		}
	}
}

func TestQueries(t *testing.T) {
	t.Parallel()
	s := seed(t)

	for _, r := range s.PendingRequests() {
		assert.Equal(t, request.StatusPending, r.Status)
	}
	for _, u := range s.PendingVerifications() {
		assert.NotEmpty(t, u.IDCardURL)
	}

	r1, ok := s.Request("r1")
	require.True(t, ok)
	ds := s.DonationsForRequest("r1")
	require.NotEmpty(t, ds)
	assert.True(t, r1.AmountRaised.Equal(donation.Total(ds, "r1")))
	for i := 1; i < len(ds); i++ {
		assert.False(t, ds[i].Timestamp.After(ds[i-1].Timestamp), "donations newest first")
	}

	logs := s.Logs()
	require.Len(t, logs, len(s.AdminLogs))
	assert.Equal(t, s.AdminLogs[len(s.AdminLogs)-1].ID, logs[0].ID)

	_, ok = s.User("u_nobody")
	assert.False(t, ok)
}

func TestUnreconciledDetectsDrift(t *testing.T) {
	t.Parallel()
	s := seed(t)
	s.Requests[0].AmountRaised = s.Requests[0].AmountRaised.Add(decimal.NewFromInt(1))
	assert.Equal(t, []string{s.Requests[0].ID}, s.Unreconciled())
	assert.ErrorIs(t, s.Validate(), domain.ErrInvalidArgument)
}

func TestFeedOrders(t *testing.T) {
	t.Parallel()
	snap := seed(t)
	ids := func(order request.FeedOrder) []string {
		var out []string
		for _, r := range snap.Feed(order) {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"r2", "r1", "r4", "r3"}, ids(request.FeedByNewest))
	assert.Equal(t, []string{"r1", "r3", "r2", "r4"}, ids(request.FeedByCritical))
}

func TestSummary(t *testing.T) {
	t.Parallel()
	snap := seed(t)

	student := snap.Summary("u2")
	assert.Equal(t, 1, student.RequestsFiled)
	assert.Equal(t, "18200", student.AidReceived.String())
	assert.Zero(t, student.DonationsMade)
	assert.True(t, student.TotalDonated.IsZero())

	donor := snap.Summary("u1")
	assert.Zero(t, donor.RequestsFiled)
	assert.Equal(t, 3, donor.DonationsMade)
	assert.Equal(t, "17000", donor.TotalDonated.String())

	nobody := snap.Summary("u_ghost")
	assert.Equal(t, "u_ghost", nobody.UserID)
	assert.Zero(t, nobody.RequestsFiled+nobody.DonationsMade)
}
