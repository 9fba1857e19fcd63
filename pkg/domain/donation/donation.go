package donation

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/shopspring/decimal"
)

// IDPrefix prefixes every generated donation id.
const IDPrefix = "d_"

// Payment modes accepted by the ledger. Settlement happens before a donation
// reaches the ledger, so the mode is informational.
const (
	PaymentModeMock = "mock"
	PaymentModeTest = "test"
)

// ErrInvalidPaymentMode is returned for an unknown payment mode.
var ErrInvalidPaymentMode = fmt.Errorf("payment mode must be mock or test: %w", domain.ErrInvalidArgument)

// Donation is an immutable contribution record.
type Donation struct {
	ID          string          `json:"donation_id"`
	RequestID   string          `json:"request_id"`
	DonorID     string          `json:"donor_id"`
	DonorName   string          `json:"donor_name"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"payment_mode"`
	Timestamp   time.Time       `json:"timestamp"`
}

// New creates a donation. The amount must be positive; an empty payment mode
// defaults to mock.
func New(requestID, donorID, donorName string, amount decimal.Decimal, paymentMode string, at time.Time) (Donation, error) {
	verr := &domain.ValidationError{}
	if requestID == "" {
		verr.Add("request_id", "is required")
	}
	if donorID == "" {
		verr.Add("donor_id", "is required")
	}
	if !amount.IsPositive() {
		verr.Add("amount", "must be positive")
	}
	if err := verr.Err(); err != nil {
		return Donation{}, err
	}
	mode, err := normalizeMode(paymentMode)
	if err != nil {
		return Donation{}, err
	}
	return Donation{
		ID:          domain.NewID(IDPrefix),
		RequestID:   requestID,
		DonorID:     donorID,
		DonorName:   donorName,
		Amount:      amount,
		PaymentMode: mode,
		Timestamp:   at.UTC(),
	}, nil
}

func normalizeMode(mode string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case "":
		return PaymentModeMock, nil
	case PaymentModeMock, PaymentModeTest:
		return m, nil
	}
	return "", ErrInvalidPaymentMode
}

// Validate checks the record invariants. Used when hydrating persisted state.
func (d Donation) Validate() error {
	verr := &domain.ValidationError{}
	if d.ID == "" {
		verr.Add("donation_id", "cannot be empty")
	}
	if d.RequestID == "" {
		verr.Add("request_id", "cannot be empty")
	}
	if !d.Amount.IsPositive() {
		verr.Add("amount", "must be positive")
	}
	return verr.Err()
}

// Total sums the donations made to requestID.
func Total(ds []Donation, requestID string) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range ds {
		if d.RequestID == requestID {
			sum = sum.Add(d.Amount)
		}
	}
	return sum
}
