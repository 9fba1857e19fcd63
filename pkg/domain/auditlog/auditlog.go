// Package auditlog holds the append-only record of administrative actions.
package auditlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
)

// IDPrefix prefixes every generated log id.
const IDPrefix = "log_"

// Action is the verb tag of an entry, e.g. APPROVED_REQUEST.
type Action string

const (
	ActionApprovedRequest Action = "APPROVED_REQUEST"
	ActionRejectedRequest Action = "REJECTED_REQUEST"
	ActionClosedRequest   Action = "CLOSED_REQUEST"
	ActionApprovedUser    Action = "APPROVED_USER"
	ActionRejectedUser    Action = "REJECTED_USER"
)

// RequestDecisionAction maps a request verdict to its action tag.
func RequestDecisionAction(d domain.Decision) Action {
	return Action(strings.ToUpper(string(d)) + "_REQUEST")
}

// UserDecisionAction maps a verification verdict to its action tag.
func UserDecisionAction(d domain.Decision) Action {
	return Action(strings.ToUpper(string(d)) + "_USER")
}

// Entry is one immutable audit record.
type Entry struct {
	ID        string    `json:"log_id"`
	Action    Action    `json:"action"`
	TargetID  string    `json:"target_id"`
	AdminID   string    `json:"admin_id"`
	AdminName string    `json:"admin_name"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// New creates an entry stamped at the given time.
func New(action Action, targetID, adminID, adminName, details string, at time.Time) Entry {
	return Entry{
		ID:        domain.NewID(IDPrefix),
		Action:    action,
		TargetID:  targetID,
		AdminID:   adminID,
		AdminName: adminName,
		Timestamp: at.UTC(),
		Details:   details,
	}
}

// Detailf formats the details line used by the workflow operations,
// e.g. "Request Hostel Fees was approved by Admin Overseer".
func Detailf(kind, subject, verb, adminName string) string {
	return fmt.Sprintf("%s %s was %s by %s", kind, subject, verb, adminName)
}

// Validate checks the record invariants. Used when hydrating persisted state.
func (e Entry) Validate() error {
	verr := &domain.ValidationError{}
	if e.ID == "" {
		verr.Add("log_id", "cannot be empty")
	}
	if e.Action == "" {
		verr.Add("action", "cannot be empty")
	}
	if e.TargetID == "" {
		verr.Add("target_id", "cannot be empty")
	}
	return verr.Err()
}
