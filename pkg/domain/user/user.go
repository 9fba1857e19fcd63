package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
)

// IDPrefix prefixes every generated user id.
const IDPrefix = "u_"

var (
	// ErrUserNotFound is returned when a user cannot be found in the ledger.
	ErrUserNotFound = fmt.Errorf("user %w", domain.ErrNotFound)
	// ErrEmailTaken is returned when registering an email that is already in use.
	ErrEmailTaken = fmt.Errorf("email %w", domain.ErrAlreadyExists)
	// ErrNotAdmin is returned when a non-admin attempts an administrative action.
	ErrNotAdmin = fmt.Errorf("admin role required: %w", domain.ErrForbidden)
)

// Role is the participant kind.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// VerificationStatus is the identity review state.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Valid reports whether s is a known verification status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// User is a participant account.
//
// Invariant: IsVerified is true if and only if VerificationStatus is approved.
// The verification fields only change through SubmitVerification and
// DecideVerification.
type User struct {
	ID                 string             `json:"user_id"`
	FullName           string             `json:"full_name"`
	CollegeName        string             `json:"college_name"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	Role               Role               `json:"role"`
	Avatar             string             `json:"avatar"`
	CreatedAt          time.Time          `json:"created_at"`
	IsVerified         bool               `json:"is_verified"`
	IsEmailVerified    bool               `json:"is_email_verified"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	IDCardURL          string             `json:"id_card_url,omitempty"`
	LastRequestDate    *time.Time         `json:"last_request_date,omitempty"`
}

// Registration holds the caller-supplied fields of a new account.
type Registration struct {
	FullName    string
	Email       string
	Phone       string
	CollegeName string
	Role        Role
	Avatar      string
}

// New creates a user from a registration. Students start unverified and
// pending; admins are created already approved.
func New(reg Registration, now time.Time) (User, error) {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(reg.FullName) == "" {
		verr.Add("full_name", "cannot be empty")
	}
	if !IsEmail(reg.Email) {
		verr.Add("email", "must be a valid email address")
	}
	role := reg.Role
	if role == "" {
		role = RoleStudent
	}
	if !role.Valid() {
		verr.Add("role", "must be STUDENT or ADMIN")
	}
	if err := verr.Err(); err != nil {
		return User{}, err
	}

	u := User{
		ID:                 domain.NewID(IDPrefix),
		FullName:           strings.TrimSpace(reg.FullName),
		CollegeName:        strings.TrimSpace(reg.CollegeName),
		Email:              strings.TrimSpace(reg.Email),
		Phone:              strings.TrimSpace(reg.Phone),
		Role:               role,
		Avatar:             reg.Avatar,
		CreatedAt:          now.UTC(),
		VerificationStatus: VerificationPending,
	}
	if role == RoleAdmin {
		u.VerificationStatus = VerificationApproved
		u.IsVerified = true
		u.IsEmailVerified = true
	}
	return u, nil
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RequireAdmin returns ErrNotAdmin unless u is an administrator.
func (u User) RequireAdmin() error {
	if !u.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// SubmitVerification records identity evidence and moves the user back into
// review. Allowed from any state, including rejected. The ID card may be
// omitted only when one was submitted before.
func (u *User) SubmitVerification(institution, idCardURL string) error {
	institution = strings.TrimSpace(institution)
	idCardURL = strings.TrimSpace(idCardURL)
	verr := &domain.ValidationError{}
	if institution == "" {
		verr.Add("institution", "cannot be empty")
	}
	if idCardURL == "" && u.IDCardURL == "" {
		verr.Add("id_card_url", "is required on the first submission")
	}
	if err := verr.Err(); err != nil {
		return err
	}
	u.CollegeName = institution
	if idCardURL != "" {
		u.IDCardURL = idCardURL
	}
	u.VerificationStatus = VerificationPending
	u.IsVerified = false
	return nil
}

// DecideVerification applies an administrator verdict.
func (u *User) DecideVerification(decision domain.Decision) error {
	if !decision.Valid() {
		return domain.NewValidationError("decision", "must be approved or rejected")
	}
	u.VerificationStatus = VerificationStatus(decision)
	u.IsVerified = decision == domain.DecisionApproved
	return nil
}

// Validate checks the record invariants. Used when hydrating persisted state.
func (u User) Validate() error {
	verr := &domain.ValidationError{}
	if u.ID == "" {
		verr.Add("user_id", "cannot be empty")
	}
	if u.Email == "" {
		verr.Add("email", "cannot be empty")
	}
	if !u.Role.Valid() {
		verr.Add("role", fmt.Sprintf("unknown role %q", u.Role))
	}
	if !u.VerificationStatus.Valid() {
		verr.Add("verification_status", fmt.Sprintf("unknown status %q", u.VerificationStatus))
	}
	if u.IsVerified != (u.VerificationStatus == VerificationApproved) {
		verr.Add("is_verified", "must match verification_status")
	}
	return verr.Err()
}

// NormalizeEmail folds an email for case-insensitive comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmail reports whether s parses as a bare email address.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}
