package user_test

import (
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func TestNewUser(t *testing.T) {
	t.Parallel()

	t.Run("student starts pending", func(t *testing.T) {
		u, err := user.New(user.Registration{FullName: "Ankita Das", Email: "ankita@iitd.ac.in"}, now)
		require.NoError(t, err)
		assert.Contains(t, u.ID, user.IDPrefix)
		assert.Equal(t, user.RoleStudent, u.Role)
		assert.Equal(t, user.VerificationPending, u.VerificationStatus)
		assert.False(t, u.IsVerified)
		assert.NoError(t, u.Validate())
	})

	t.Run("admin starts verified", func(t *testing.T) {
		u, err := user.New(user.Registration{FullName: "Admin", Email: "audit@studentaid.network", Role: user.RoleAdmin}, now)
		require.NoError(t, err)
		assert.True(t, u.IsVerified)
		assert.Equal(t, user.VerificationApproved, u.VerificationStatus)
		assert.NoError(t, u.Validate())
	})

	t.Run("invalid fields", func(t *testing.T) {
		_, err := user.New(user.Registration{FullName: " ", Email: "not-an-email", Role: "ROOT"}, now)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Errors, 3)
	})
}

func TestSubmitVerification(t *testing.T) {
	t.Parallel()
	for _, start := range []user.VerificationStatus{user.VerificationPending, user.VerificationApproved, user.VerificationRejected} {
		t.Run(string(start), func(t *testing.T) {
			u := user.User{ID: "u_1", Email: "a@b.io", Role: user.RoleStudent, VerificationStatus: user.VerificationPending}
			if start != user.VerificationPending {
				require.NoError(t, u.DecideVerification(domain.Decision(start)))
			}
			require.NoError(t, u.SubmitVerification("IIT Delhi", "https://cdn/id.png"))
			assert.Equal(t, user.VerificationPending, u.VerificationStatus)
			assert.False(t, u.IsVerified)
			assert.Equal(t, "IIT Delhi", u.CollegeName)
			assert.Equal(t, "https://cdn/id.png", u.IDCardURL)
		})
	}

	t.Run("blank institution", func(t *testing.T) {
		u := user.User{IDCardURL: "https://cdn/id.png"}
		assert.ErrorIs(t, u.SubmitVerification("  ", ""), domain.ErrInvalidArgument)
	})

	t.Run("first submission needs an id card", func(t *testing.T) {
		u := user.User{ID: "u_1", VerificationStatus: user.VerificationRejected}
		err := u.SubmitVerification("IIT Delhi", " ")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Errors, 1)
		assert.Equal(t, "id_card_url", verr.Errors[0].Field)
		assert.Equal(t, user.VerificationRejected, u.VerificationStatus, "unchanged on error")
	})
}

func TestDecideVerification(t *testing.T) {
	t.Parallel()
	u := user.User{ID: "u_1", Email: "a@b.io", Role: user.RoleStudent, VerificationStatus: user.VerificationPending}

	require.NoError(t, u.DecideVerification(domain.DecisionApproved))
	assert.True(t, u.IsVerified)
	assert.Equal(t, user.VerificationApproved, u.VerificationStatus)

	require.NoError(t, u.DecideVerification(domain.DecisionRejected))
	assert.False(t, u.IsVerified)
	assert.Equal(t, user.VerificationRejected, u.VerificationStatus)

	assert.ErrorIs(t, u.DecideVerification("maybe"), domain.ErrInvalidArgument)
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, user.User{Role: user.RoleStudent}.RequireAdmin(), domain.ErrForbidden)
	assert.NoError(t, user.User{Role: user.RoleAdmin}.RequireAdmin())
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ankita.das@iitd.ac.in", user.NormalizeEmail("  Ankita.Das@IITD.ac.in "))
	assert.True(t, user.IsEmail("a@b.io"))
	assert.False(t, user.IsEmail("Ankita <a@b.io>"))
}
