package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/shopspring/decimal"
)

// IDPrefix prefixes every generated request id.
const IDPrefix = "r_"

// DefaultTitle is used when a request is created without a title.
const DefaultTitle = "Support Request"

// AnonymousName replaces the student name of hidden-identity requests in public views.
const AnonymousName = "Anonymous Student"

var (
	// ErrRequestNotFound is returned when a request cannot be found in the ledger.
	ErrRequestNotFound = fmt.Errorf("request %w", domain.ErrNotFound)
	// ErrNotPending is returned when deciding a request that was already decided.
	ErrNotPending = fmt.Errorf("request is not pending: %w", domain.ErrConflict)
	// ErrNotApproved is returned when a request must be approved for the operation.
	ErrNotApproved = fmt.Errorf("request is not approved: %w", domain.ErrConflict)
	// ErrAmountMustBePositive is returned for zero or negative amounts.
	ErrAmountMustBePositive = fmt.Errorf("amount must be positive: %w", domain.ErrInvalidArgument)
)

// Category classifies what the funds are for.
type Category string

const (
	CategoryFees    Category = "fees"
	CategoryMedical Category = "medical"
	CategoryHousing Category = "housing"
	CategoryOther   Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFees, CategoryMedical, CategoryHousing, CategoryOther:
		return true
	}
	return false
}

// Urgency is the owner-declared priority. Serialized as its numeric level.
type Urgency int

const (
	UrgencyLow    Urgency = 1
	UrgencyMedium Urgency = 2
	UrgencyHigh   Urgency = 3
)

// Valid reports whether u is LOW, MEDIUM or HIGH.
func (u Urgency) Valid() bool {
	return u >= UrgencyLow && u <= UrgencyHigh
}

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "LOW"
	case UrgencyMedium:
		return "MEDIUM"
	case UrgencyHigh:
		return "HIGH"
	}
	return fmt.Sprintf("Urgency(%d)", int(u))
}

// ParseUrgency accepts LOW, MEDIUM or HIGH in any case.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return UrgencyLow, nil
	case "MEDIUM":
		return UrgencyMedium, nil
	case "HIGH":
		return UrgencyHigh, nil
	}
	return 0, domain.NewValidationError("urgency_level", "must be LOW, MEDIUM or HIGH")
}

// Score derives the feed priority from the urgency level. Any positive weight
// keeps HIGH above MEDIUM above LOW.
func Score(u Urgency, weight float64) float64 {
	return float64(u) * weight
}

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusClosed   Status = "closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// Request is a funding ask raised by a student.
//
// Invariants:
//   - AmountRaised is never negative and only grows through ApplyDonation.
//   - Status moves pending -> approved|rejected, and approved -> closed.
//   - ApprovedAt is stamped once, on the pending -> approved transition.
type Request struct {
	ID              string          `json:"request_id"`
	UserID          string          `json:"user_id"`
	StudentName     string          `json:"student_name"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        Category        `json:"category"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	AmountRaised    decimal.Decimal `json:"amount_raised"`
	UrgencyLevel    Urgency         `json:"urgency_level"`
	UrgencyScore    float64         `json:"urgency_score"`
	HideIdentity    bool            `json:"hide_identity"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	Deadline        *time.Time      `json:"deadline,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
}

// Builder provides a fluent API for constructing new pending requests.
type Builder struct {
	id           string
	userID       string
	studentName  string
	title        string
	description  string
	category     Category
	amount       decimal.Decimal
	urgency      Urgency
	weight       float64
	hideIdentity bool
	deadline     *time.Time
	imageURL     string
	createdAt    time.Time
}

// New creates a Builder with a fresh id, the "other" category and MEDIUM urgency.
func New() *Builder {
	return &Builder{
		id:        domain.NewID(IDPrefix),
		category:  CategoryOther,
		urgency:   UrgencyMedium,
		weight:    1,
		createdAt: time.Now().UTC(),
	}
}

// WithID overrides the generated id.
func (b *Builder) WithID(id string) *Builder {
	b.id = id
	return b
}

// WithOwner sets the owning user and the display name shown in the feed.
func (b *Builder) WithOwner(userID, studentName string) *Builder {
	b.userID = userID
	b.studentName = studentName
	return b
}

func (b *Builder) WithTitle(title string) *Builder {
	b.title = title
	return b
}

func (b *Builder) WithDescription(description string) *Builder {
	b.description = description
	return b
}

func (b *Builder) WithCategory(c Category) *Builder {
	b.category = c
	return b
}

// WithAmount sets the requested amount. It must be positive.
func (b *Builder) WithAmount(amount decimal.Decimal) *Builder {
	b.amount = amount
	return b
}

// WithUrgency sets the urgency level and the weight used to derive the score.
func (b *Builder) WithUrgency(u Urgency, weight float64) *Builder {
	b.urgency = u
	b.weight = weight
	return b
}

func (b *Builder) WithHideIdentity(hide bool) *Builder {
	b.hideIdentity = hide
	return b
}

func (b *Builder) WithDeadline(deadline *time.Time) *Builder {
	b.deadline = deadline
	return b
}

func (b *Builder) WithImageURL(url string) *Builder {
	b.imageURL = url
	return b
}

// WithCreatedAt sets the creation timestamp, normally the ledger transaction time.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// Build validates the inputs and returns a pending request with nothing raised.
func (b *Builder) Build() (Request, error) {
	verr := &domain.ValidationError{}
	if b.userID == "" {
		verr.Add("user_id", "is required")
	}
	if strings.TrimSpace(b.description) == "" {
		verr.Add("description", "cannot be empty")
	}
	if !b.category.Valid() {
		verr.Add("category", "must be fees, medical, housing or other")
	}
	if !b.amount.IsPositive() {
		verr.Add("requested_amount", "must be positive")
	}
	if !b.urgency.Valid() {
		verr.Add("urgency_level", "must be LOW, MEDIUM or HIGH")
	}
	if b.weight <= 0 {
		verr.Add("urgency_weight", "must be positive")
	}
	if err := verr.Err(); err != nil {
		return Request{}, err
	}

	title := strings.TrimSpace(b.title)
	if title == "" {
		title = DefaultTitle
	}
	var deadline *time.Time
	if b.deadline != nil {
		d := b.deadline.UTC()
		deadline = &d
	}
	return Request{
		ID:              b.id,
		UserID:          b.userID,
		StudentName:     b.studentName,
		Title:           title,
		Description:     strings.TrimSpace(b.description),
		Category:        b.category,
		RequestedAmount: b.amount,
		AmountRaised:    decimal.Zero,
		UrgencyLevel:    b.urgency,
		UrgencyScore:    Score(b.urgency, b.weight),
		HideIdentity:    b.hideIdentity,
		Status:          StatusPending,
		CreatedAt:       b.createdAt.UTC(),
		Deadline:        deadline,
		ImageURL:        b.imageURL,
	}, nil
}

// Decide moves a pending request to approved or rejected.
func (r *Request) Decide(decision domain.Decision, now time.Time) error {
	if !decision.Valid() {
		return domain.NewValidationError("decision", "must be approved or rejected")
	}
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = Status(decision)
	if decision == domain.DecisionApproved && r.ApprovedAt == nil {
		t := now.UTC()
		r.ApprovedAt = &t
	}
	return nil
}

// Close retires an approved request from the feed.
func (r *Request) Close() error {
	if r.Status != StatusApproved {
		return ErrNotApproved
	}
	r.Status = StatusClosed
	return nil
}

// ApplyDonation adds amount to the running total. Over-funding is allowed.
func (r *Request) ApplyDonation(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}
	if r.Status != StatusApproved {
		return ErrNotApproved
	}
	r.AmountRaised = r.AmountRaised.Add(amount)
	return nil
}

// Progress returns the funded percentage, which may exceed 100.
func (r Request) Progress() decimal.Decimal {
	if !r.RequestedAmount.IsPositive() {
		return decimal.Zero
	}
	return r.AmountRaised.Mul(decimal.NewFromInt(100)).Div(r.RequestedAmount).Round(2)
}

// IsFunded reports whether the target has been reached.
func (r Request) IsFunded() bool {
	return r.AmountRaised.GreaterThanOrEqual(r.RequestedAmount)
}

// Public returns the copy shown in the open feed: hidden identities are masked.
func (r Request) Public() Request {
	if r.HideIdentity {
		r.StudentName = AnonymousName
		r.UserID = ""
	}
	return r
}

// Clone returns a copy that shares no pointers with r.
func (r Request) Clone() Request {
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		r.ApprovedAt = &t
	}
	if r.Deadline != nil {
		t := *r.Deadline
		r.Deadline = &t
	}
	return r
}

// Validate checks the record invariants. Used when hydrating persisted state.
func (r Request) Validate() error {
	verr := &domain.ValidationError{}
	if r.ID == "" {
		verr.Add("request_id", "cannot be empty")
	}
	if r.UserID == "" {
		verr.Add("user_id", "cannot be empty")
	}
	if !r.Category.Valid() {
		verr.Add("category", fmt.Sprintf("unknown category %q", r.Category))
	}
	if !r.UrgencyLevel.Valid() {
		verr.Add("urgency_level", "must be 1, 2 or 3")
	}
	if !r.Status.Valid() {
		verr.Add("status", fmt.Sprintf("unknown status %q", r.Status))
	}
	if !r.RequestedAmount.IsPositive() {
		verr.Add("requested_amount", "must be positive")
	}
	if r.AmountRaised.IsNegative() {
		verr.Add("amount_raised", "cannot be negative")
	}
	return verr.Err()
}
