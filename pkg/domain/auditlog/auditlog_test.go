package auditlog_test

import (
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/auditlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionActions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, auditlog.ActionApprovedRequest, auditlog.RequestDecisionAction(domain.DecisionApproved))
	assert.Equal(t, auditlog.ActionRejectedRequest, auditlog.RequestDecisionAction(domain.DecisionRejected))
	assert.Equal(t, auditlog.ActionApprovedUser, auditlog.UserDecisionAction(domain.DecisionApproved))
	assert.Equal(t, auditlog.ActionRejectedUser, auditlog.UserDecisionAction(domain.DecisionRejected))
}

func TestNewEntry(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("IST", 5*3600+1800))
	e := auditlog.New(auditlog.ActionApprovedRequest, "r1", "u_admin", "Admin Overseer",
		auditlog.Detailf("Request", "Hostel Fees", "approved", "Admin Overseer"), at)

	require.NoError(t, e.Validate())
	assert.True(t, strings.HasPrefix(e.ID, auditlog.IDPrefix))
	assert.Equal(t, time.UTC, e.Timestamp.Location())
	assert.True(t, at.Equal(e.Timestamp))
	assert.Equal(t, "Request Hostel Fees was approved by Admin Overseer", e.Details)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	err := auditlog.Entry{}.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
}
