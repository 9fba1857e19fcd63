package donation

import "github.com/shopspring/decimal"

// DonateInput represents the request body for recording a donation. The
// payment is assumed settled before it reaches the ledger.
type DonateInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"payment_mode" validate:"omitempty,oneof=mock test"`
}
