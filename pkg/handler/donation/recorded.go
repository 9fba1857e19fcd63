// Package donation holds the event handlers that react to recorded donations.
package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/studentaid/pkg/domain/donation"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/ledger"
)

// ErrUnreconciled is returned when a request total no longer matches the sum
// of its donations.
var ErrUnreconciled = errors.New("amount_raised does not match donations")

// Snapshotter is the read side of the ledger store.
type Snapshotter interface {
	Snapshot() ledger.Snapshot
}

// HandleRecorded audits the reconciliation invariant of the request named by
// a DonationRecorded event and logs when the donation reaches the target.
func HandleRecorded(store Snapshotter, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With("handler", "donation.HandleRecorded", "event_type", e.Type())
		evt, ok := e.(*events.DonationRecorded)
		if !ok {
			log.Error("unexpected event type", "event", e)
			return fmt.Errorf("donation.HandleRecorded: unexpected event %T", e)
		}
		log = log.With("request_id", evt.RequestID, "donation_id", evt.DonationID)

		snap := store.Snapshot()
		r, ok := snap.Request(evt.RequestID)
		if !ok {
			log.Error("donation references unknown request")
			return fmt.Errorf("%w: %s", request.ErrRequestNotFound, evt.RequestID)
		}
		if total := donation.Total(snap.Donations, r.ID); !total.Equal(r.AmountRaised) {
			log.Error("reconciliation mismatch", "amount_raised", r.AmountRaised, "donations_total", total)
			return fmt.Errorf("request %s: %w", r.ID, ErrUnreconciled)
		}

		before := evt.AmountRaised.Sub(evt.Amount)
		if before.LessThan(r.RequestedAmount) && evt.AmountRaised.GreaterThanOrEqual(r.RequestedAmount) {
			log.Info("🎯 Request fully funded",
				"requested_amount", r.RequestedAmount,
				"amount_raised", evt.AmountRaised,
			)
		}
		log.Debug("donation reconciled", "amount_raised", r.AmountRaised, "version", evt.Version)
		return nil
	}
}
