package donation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/handler/donation"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStore struct{ snap ledger.Snapshot }

func (s fixedStore) Snapshot() ledger.Snapshot { return s.snap.Clone() }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func seed(t *testing.T) ledger.Snapshot {
	t.Helper()
	snap, err := ledger.Seed()
	require.NoError(t, err)
	return snap
}

func TestHandleRecorded(t *testing.T) {
	t.Parallel()
	snap := seed(t)
	r1, ok := snap.Request("r1")
	require.True(t, ok)

	h := donation.HandleRecorded(fixedStore{snap: snap}, quiet)
	err := h(context.Background(), &events.DonationRecorded{
		Meta:         events.NewMeta(snap.Version, time.Now()),
		DonationID:   "d_seed_4",
		RequestID:    "r1",
		Amount:       decimal.NewFromInt(8200),
		AmountRaised: r1.AmountRaised,
	})
	assert.NoError(t, err)
}

func TestHandleRecordedDetectsDrift(t *testing.T) {
	t.Parallel()
	snap := seed(t)
	for i := range snap.Requests {
		if snap.Requests[i].ID == "r2" {
			snap.Requests[i].AmountRaised = snap.Requests[i].AmountRaised.Add(decimal.NewFromInt(5))
		}
	}

	h := donation.HandleRecorded(fixedStore{snap: snap}, quiet)
	err := h(context.Background(), &events.DonationRecorded{RequestID: "r2", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, donation.ErrUnreconciled)
}

func TestHandleRecordedUnknownRequest(t *testing.T) {
	t.Parallel()
	h := donation.HandleRecorded(fixedStore{snap: seed(t)}, quiet)
	err := h(context.Background(), &events.DonationRecorded{RequestID: "r_gone"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = h(context.Background(), &events.RequestClosed{})
	assert.Error(t, err)
}
