package request

import (
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/shopspring/decimal"
)

// CreateRequestInput represents the request body for raising a funding ask.
// Amount and urgency are checked by the domain builder.
type CreateRequestInput struct {
	Title           string          `json:"title" validate:"max=120"`
	Description     string          `json:"description" validate:"required,max=4000"`
	Category        string          `json:"category" validate:"required,oneof=fees medical housing other"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	UrgencyLevel    string          `json:"urgency_level" validate:"required"`
	HideIdentity    bool            `json:"hide_identity"`
	Deadline        *time.Time      `json:"deadline"`
	ImageURL        string          `json:"image_url" validate:"omitempty,url"`
}

// DecisionInput represents an administrator verdict on a pending request.
type DecisionInput struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected APPROVED REJECTED"`
}

// RequestView is a request with its funded percentage.
type RequestView struct {
	request.Request
	Progress decimal.Decimal `json:"progress"`
	Funded   bool            `json:"funded"`
}

func toView(r request.Request) RequestView {
	return RequestView{Request: r, Progress: r.Progress(), Funded: r.IsFunded()}
}

func toViews(rs []request.Request) []RequestView {
	out := make([]RequestView, 0, len(rs))
	for _, r := range rs {
		out = append(out, toView(r))
	}
	return out
}
