// Package donation records contributions against approved requests.
package donation

import (
	"context"
	"log/slog"

	"github.com/amirasaad/studentaid/pkg/domain/donation"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/shopspring/decimal"
)

// Service applies donations to the ledger.
type Service struct {
	store  *ledger.Store
	bus    eventbus.Bus
	logger *slog.Logger
}

// New creates a new Service. bus may be nil when no events are wanted.
func New(
	store *ledger.Store,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// RecordDonation appends a donation and raises the request total in one
// commit, so no snapshot ever shows one without the other. donor must exist
// in the ledger. The payment is assumed settled already. Totals past the requested amount are accepted.
func (s *Service) RecordDonation(
	ctx context.Context,
	requestID string,
	donor user.User,
	amount decimal.Decimal,
	paymentMode string,
) (d donation.Donation, r request.Request, err error) {
	log := s.logger.With(
		"context", "RecordDonation",
		"request_id", requestID,
		"donor_id", donor.ID,
		"amount", amount,
	)
	log.Info("RecordDonation started")
	if !amount.IsPositive() {
		err = request.ErrAmountMustBePositive
		log.Error("RecordDonation failed", "error", err)
		return
	}
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		// The donor name is recorded as the ledger knows it, not as the caller passed it.
		var stored user.User
		stored, err = tx.User(donor.ID)
		if err != nil {
			return err
		}
		r, err = tx.Request(requestID)
		if err != nil {
			return err
		}
		if err = r.ApplyDonation(amount); err != nil {
			return err
		}
		d, err = donation.New(r.ID, stored.ID, stored.FullName, amount, paymentMode, tx.Now())
		if err != nil {
			return err
		}
		if err = tx.AppendDonation(d); err != nil {
			return err
		}
		return tx.PutRequest(r)
	})
	if err != nil {
		log.Error("RecordDonation failed", "error", err)
		return donation.Donation{}, request.Request{}, err
	}
	s.emit(ctx, &events.DonationRecorded{
		Meta:         events.NewMeta(snap.Version, snap.UpdatedAt),
		DonationID:   d.ID,
		RequestID:    r.ID,
		DonorID:      donor.ID,
		Amount:       amount,
		AmountRaised: r.AmountRaised,
	})
	log.Info("RecordDonation successful",
		"donation_id", d.ID,
		"amount_raised", r.AmountRaised,
		"progress", r.Progress(),
	)
	return
}

// ForRequest lists the donations made to requestID, newest first.
func (s *Service) ForRequest(ctx context.Context, requestID string) []donation.Donation {
	return s.store.Snapshot().DonationsForRequest(requestID)
}

// ByDonor lists the donations made by donorID, newest first.
func (s *Service) ByDonor(ctx context.Context, donorID string) []donation.Donation {
	return s.store.Snapshot().DonationsByDonor(donorID)
}

func (s *Service) emit(ctx context.Context, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Failed to emit event", "type", evt.Type(), "error", err)
	}
}
