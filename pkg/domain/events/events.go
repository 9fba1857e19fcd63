// Package events defines the domain events published after a ledger commit.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is implemented by every domain event.
type Event interface {
	Type() string
}

// Meta carries the fields shared by all events. Version is the ledger
// snapshot version that made the change visible.
type Meta struct {
	ID        uuid.UUID `json:"id"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMeta stamps a fresh event id for the given commit.
func NewMeta(version uint64, at time.Time) Meta {
	return Meta{ID: uuid.New(), Version: version, Timestamp: at}
}

type UserRegistered struct {
	Meta
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (e *UserRegistered) Type() string { return EventTypeUserRegistered.String() }

type VerificationSubmitted struct {
	Meta
	UserID      string `json:"user_id"`
	Institution string `json:"institution"`
}

func (e *VerificationSubmitted) Type() string { return EventTypeVerificationSubmitted.String() }

type VerificationDecided struct {
	Meta
	UserID   string `json:"user_id"`
	Decision string `json:"decision"`
	AdminID  string `json:"admin_id"`
}

func (e *VerificationDecided) Type() string { return EventTypeVerificationDecided.String() }

type RequestCreated struct {
	Meta
	RequestID       string          `json:"request_id"`
	UserID          string          `json:"user_id"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	UrgencyScore    float64         `json:"urgency_score"`
}

func (e *RequestCreated) Type() string { return EventTypeRequestCreated.String() }

type RequestDecided struct {
	Meta
	RequestID string `json:"request_id"`
	Decision  string `json:"decision"`
	AdminID   string `json:"admin_id"`
}

func (e *RequestDecided) Type() string { return EventTypeRequestDecided.String() }

type RequestClosed struct {
	Meta
	RequestID string `json:"request_id"`
	AdminID   string `json:"admin_id"`
}

func (e *RequestClosed) Type() string { return EventTypeRequestClosed.String() }

// DonationRecorded is emitted once the donation and the new running total
// are both committed.
type DonationRecorded struct {
	Meta
	DonationID   string          `json:"donation_id"`
	RequestID    string          `json:"request_id"`
	DonorID      string          `json:"donor_id"`
	Amount       decimal.Decimal `json:"amount"`
	AmountRaised decimal.Decimal `json:"amount_raised"`
}

func (e *DonationRecorded) Type() string { return EventTypeDonationRecorded.String() }

// EventID returns the unique id of the event, used as an idempotency key.
func (m Meta) EventID() string { return m.ID.String() }

// LedgerVersion returns the ledger version the event was committed at.
func (m Meta) LedgerVersion() uint64 { return m.Version }
