package ledger

import (
	"fmt"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/auditlog"
	"github.com/amirasaad/studentaid/pkg/domain/donation"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
)

// Tx is the working copy handed to a Store.Do callback. Changes become
// visible only if the callback returns nil and the commit succeeds.
type Tx struct {
	snap     Snapshot
	now      time.Time
	dirty    bool
	users    map[string]int
	emails   map[string]int
	requests map[string]int
}

func newTx(base Snapshot, now time.Time) *Tx {
	tx := &Tx{
		snap:     base,
		now:      now,
		users:    make(map[string]int, len(base.Users)),
		emails:   make(map[string]int, len(base.Users)),
		requests: make(map[string]int, len(base.Requests)),
	}
	for i, u := range base.Users {
		tx.users[u.ID] = i
		tx.emails[user.NormalizeEmail(u.Email)] = i
	}
	for i, r := range base.Requests {
		tx.requests[r.ID] = i
	}
	return tx
}

// Now is the commit timestamp. It never precedes the previous commit.
func (tx *Tx) Now() time.Time {
	return tx.now
}

// Version is the version the snapshot will carry once committed.
func (tx *Tx) Version() uint64 {
	return tx.snap.Version + 1
}

// User returns the user with the given id.
func (tx *Tx) User(id string) (user.User, error) {
	i, ok := tx.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("%w: %s", user.ErrUserNotFound, id)
	}
	return tx.snap.Users[i], nil
}

// UserByEmail performs a case-insensitive lookup.
func (tx *Tx) UserByEmail(email string) (user.User, bool) {
	i, ok := tx.emails[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, false
	}
	return tx.snap.Users[i], true
}

// AppendUser adds a new user. Ids and emails must be unique.
func (tx *Tx) AppendUser(u user.User) error {
	if _, dup := tx.users[u.ID]; dup {
		return fmt.Errorf("user %s: %w", u.ID, domain.ErrAlreadyExists)
	}
	email := user.NormalizeEmail(u.Email)
	if _, dup := tx.emails[email]; dup {
		return fmt.Errorf("%w: %s", user.ErrEmailTaken, email)
	}
	tx.snap.Users = append(tx.snap.Users, u)
	tx.users[u.ID] = len(tx.snap.Users) - 1
	tx.emails[email] = len(tx.snap.Users) - 1
	tx.dirty = true
	return nil
}

// PutUser replaces the stored user that has the same id.
func (tx *Tx) PutUser(u user.User) error {
	i, ok := tx.users[u.ID]
	if !ok {
		return fmt.Errorf("%w: %s", user.ErrUserNotFound, u.ID)
	}
	oldEmail := user.NormalizeEmail(tx.snap.Users[i].Email)
	newEmail := user.NormalizeEmail(u.Email)
	if oldEmail != newEmail {
		if _, dup := tx.emails[newEmail]; dup {
			return fmt.Errorf("%w: %s", user.ErrEmailTaken, newEmail)
		}
		delete(tx.emails, oldEmail)
		tx.emails[newEmail] = i
	}
	tx.snap.Users[i] = u
	tx.dirty = true
	return nil
}

// Request returns the request with the given id.
func (tx *Tx) Request(id string) (request.Request, error) {
	i, ok := tx.requests[id]
	if !ok {
		return request.Request{}, fmt.Errorf("%w: %s", request.ErrRequestNotFound, id)
	}
	return tx.snap.Requests[i], nil
}

// AppendRequest adds a new request.
func (tx *Tx) AppendRequest(r request.Request) error {
	if _, dup := tx.requests[r.ID]; dup {
		return fmt.Errorf("request %s: %w", r.ID, domain.ErrAlreadyExists)
	}
	tx.snap.Requests = append(tx.snap.Requests, r)
	tx.requests[r.ID] = len(tx.snap.Requests) - 1
	tx.dirty = true
	return nil
}

// PutRequest replaces the stored request that has the same id.
func (tx *Tx) PutRequest(r request.Request) error {
	i, ok := tx.requests[r.ID]
	if !ok {
		return fmt.Errorf("%w: %s", request.ErrRequestNotFound, r.ID)
	}
	tx.snap.Requests[i] = r
	tx.dirty = true
	return nil
}

// AppendDonation adds a donation record. It does not touch the running
// total; callers update the request in the same transaction.
func (tx *Tx) AppendDonation(d donation.Donation) error {
	if _, ok := tx.requests[d.RequestID]; !ok {
		return fmt.Errorf("%w: %s", request.ErrRequestNotFound, d.RequestID)
	}
	if _, ok := tx.users[d.DonorID]; !ok {
		return fmt.Errorf("%w: %s", user.ErrUserNotFound, d.DonorID)
	}
	tx.snap.Donations = append(tx.snap.Donations, d)
	tx.dirty = true
	return nil
}

// AppendLog adds an audit entry. Entries keep acceptance order.
func (tx *Tx) AppendLog(e auditlog.Entry) {
	tx.snap.AdminLogs = append(tx.snap.AdminLogs, e)
	tx.dirty = true
}

func (tx *Tx) commit() Snapshot {
	next := tx.snap
	next.Version++
	next.UpdatedAt = tx.now
	return next
}
