package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/auditlog"
	"github.com/amirasaad/studentaid/pkg/domain/donation"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/shopspring/decimal"
)

// ErrEmptyDocument is returned when decoding an empty persisted document.
var ErrEmptyDocument = errors.New("empty ledger document")

// Snapshot is a consistent copy of the whole ledger at one version. Values
// handed out by the Store are private copies; mutating them has no effect on
// the ledger.
type Snapshot struct {
	Version   uint64              `json:"version"`
	UpdatedAt time.Time           `json:"updated_at"`
	Users     []user.User         `json:"users"`
	Requests  []request.Request   `json:"requests"`
	Donations []donation.Donation `json:"donations"`
	AdminLogs []auditlog.Entry    `json:"admin_logs"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Version:   s.Version,
		UpdatedAt: s.UpdatedAt,
		Users:     make([]user.User, len(s.Users)),
		Requests:  make([]request.Request, len(s.Requests)),
		Donations: slices.Clone(s.Donations),
		AdminLogs: slices.Clone(s.AdminLogs),
	}
	for i, u := range s.Users {
		if u.LastRequestDate != nil {
			t := *u.LastRequestDate
			u.LastRequestDate = &t
		}
		out.Users[i] = u
	}
	for i, r := range s.Requests {
		out.Requests[i] = r.Clone()
	}
	if out.Donations == nil {
		out.Donations = []donation.Donation{}
	}
	if out.AdminLogs == nil {
		out.AdminLogs = []auditlog.Entry{}
	}
	return out
}

// Encode serializes s as the persisted ledger document.
func Encode(s Snapshot) ([]byte, error) {
	return json.Marshal(s.Clone())
}

// Decode parses and validates a persisted ledger document.
func Decode(data []byte) (Snapshot, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Snapshot{}, ErrEmptyDocument
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode ledger document: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s.Clone(), nil
}

// Validate reports whether the snapshot is well-formed: every record passes
// its own checks, ids are unique per collection, emails are unique, every
// donation references a known request and donor, and every request's
// amount_raised equals the sum of its donations.
func (s Snapshot) Validate() error {
	verr := &domain.ValidationError{}
	users := make(map[string]struct{}, len(s.Users))
	emails := make(map[string]struct{}, len(s.Users))
	for i, u := range s.Users {
		if err := u.Validate(); err != nil {
			verr.Add(fmt.Sprintf("users[%d]", i), err.Error())
		}
		if _, dup := users[u.ID]; dup {
			verr.Add(fmt.Sprintf("users[%d]", i), "duplicate user_id "+u.ID)
		}
		users[u.ID] = struct{}{}
		email := user.NormalizeEmail(u.Email)
		if _, dup := emails[email]; dup {
			verr.Add(fmt.Sprintf("users[%d]", i), "duplicate email "+email)
		}
		emails[email] = struct{}{}
	}
	requests := make(map[string]struct{}, len(s.Requests))
	for i, r := range s.Requests {
		if err := r.Validate(); err != nil {
			verr.Add(fmt.Sprintf("requests[%d]", i), err.Error())
		}
		if _, dup := requests[r.ID]; dup {
			verr.Add(fmt.Sprintf("requests[%d]", i), "duplicate request_id "+r.ID)
		}
		requests[r.ID] = struct{}{}
	}
	donations := make(map[string]struct{}, len(s.Donations))
	for i, d := range s.Donations {
		if err := d.Validate(); err != nil {
			verr.Add(fmt.Sprintf("donations[%d]", i), err.Error())
		}
		if _, ok := requests[d.RequestID]; !ok {
			verr.Add(fmt.Sprintf("donations[%d]", i), "unknown request_id "+d.RequestID)
		}
		if _, ok := users[d.DonorID]; !ok {
			verr.Add(fmt.Sprintf("donations[%d]", i), "unknown donor_id "+d.DonorID)
		}
		if _, dup := donations[d.ID]; dup {
			verr.Add(fmt.Sprintf("donations[%d]", i), "duplicate donation_id "+d.ID)
		}
		donations[d.ID] = struct{}{}
	}
	for _, id := range s.Unreconciled() {
		verr.Add("requests", "amount_raised of "+id+" differs from the sum of its donations")
	}
	for i, e := range s.AdminLogs {
		if err := e.Validate(); err != nil {
			verr.Add(fmt.Sprintf("admin_logs[%d]", i), err.Error())
		}
	}
	return verr.Err()
}

// User looks up a user by id.
func (s Snapshot) User(id string) (user.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return user.User{}, false
}

// UserByEmail performs a case-insensitive exact match on email.
func (s Snapshot) UserByEmail(email string) (user.User, bool) {
	want := user.NormalizeEmail(email)
	if want == "" {
		return user.User{}, false
	}
	for _, u := range s.Users {
		if user.NormalizeEmail(u.Email) == want {
			return u, true
		}
	}
	return user.User{}, false
}

// Request looks up a request by id.
func (s Snapshot) Request(id string) (request.Request, bool) {
	for _, r := range s.Requests {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return request.Request{}, false
}

// Feed returns the approved requests ranked by order, with hidden
// identities masked.
func (s Snapshot) Feed(order request.FeedOrder) []request.Request {
	out := make([]request.Request, 0, len(s.Requests))
	for _, r := range s.Requests {
		if r.Status == request.StatusApproved {
			out = append(out, r.Clone().Public())
		}
	}
	slices.SortStableFunc(out, order.Compare)
	return out
}

// PendingRequests returns the admin review queue, oldest first.
func (s Snapshot) PendingRequests() []request.Request {
	out := make([]request.Request, 0)
	for _, r := range s.Requests {
		if r.Status == request.StatusPending {
			out = append(out, r.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b request.Request) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// RequestsByUser returns the requests owned by userID, newest first.
func (s Snapshot) RequestsByUser(userID string) []request.Request {
	out := make([]request.Request, 0)
	for _, r := range s.Requests {
		if r.UserID == userID {
			out = append(out, r.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b request.Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// UserSummary totals one user's activity on both sides of the ledger.
type UserSummary struct {
	UserID        string          `json:"user_id"`
	RequestsFiled int             `json:"requests_filed"`
	AidReceived   decimal.Decimal `json:"aid_received"`
	DonationsMade int             `json:"donations_made"`
	TotalDonated  decimal.Decimal `json:"total_donated"`
}

// Summary totals the requests owned by userID, in any status, and the
// donations userID made.
func (s Snapshot) Summary(userID string) UserSummary {
	sum := UserSummary{UserID: userID, AidReceived: decimal.Zero, TotalDonated: decimal.Zero}
	for _, r := range s.Requests {
		if r.UserID == userID {
			sum.RequestsFiled++
			sum.AidReceived = sum.AidReceived.Add(r.AmountRaised)
		}
	}
	for _, d := range s.Donations {
		if d.DonorID == userID {
			sum.DonationsMade++
			sum.TotalDonated = sum.TotalDonated.Add(d.Amount)
		}
	}
	return sum
}

// PendingVerifications returns users awaiting review who submitted evidence.
func (s Snapshot) PendingVerifications() []user.User {
	out := make([]user.User, 0)
	for _, u := range s.Users {
		if u.VerificationStatus == user.VerificationPending && u.IDCardURL != "" {
			out = append(out, u)
		}
	}
	return out
}

// DonationsForRequest returns the donations made to requestID, newest first.
func (s Snapshot) DonationsForRequest(requestID string) []donation.Donation {
	return s.filterDonations(func(d donation.Donation) bool { return d.RequestID == requestID })
}

// DonationsByDonor returns the donations made by donorID, newest first.
func (s Snapshot) DonationsByDonor(donorID string) []donation.Donation {
	return s.filterDonations(func(d donation.Donation) bool { return d.DonorID == donorID })
}

func (s Snapshot) filterDonations(keep func(donation.Donation) bool) []donation.Donation {
	out := make([]donation.Donation, 0)
	for i := len(s.Donations) - 1; i >= 0; i-- {
		if keep(s.Donations[i]) {
			out = append(out, s.Donations[i])
		}
	}
	return out
}

// Logs returns the admin log newest first.
func (s Snapshot) Logs() []auditlog.Entry {
	out := slices.Clone(s.AdminLogs)
	slices.Reverse(out)
	if out == nil {
		out = []auditlog.Entry{}
	}
	return out
}

// Unreconciled lists requests whose amount_raised differs from the sum of
// their donations.
func (s Snapshot) Unreconciled() []string {
	var ids []string
	for _, r := range s.Requests {
		if !r.AmountRaised.Equal(donation.Total(s.Donations, r.ID)) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
