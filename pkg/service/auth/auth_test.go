package auth_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/amirasaad/studentaid/pkg/service/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func newService(t *testing.T) (*auth.Service, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	cfg := &config.Jwt{Secret: "test-secret", Expiry: time.Hour}
	return auth.New(store, cfg, slog.Default()), store
}

func TestLogin(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	u, err := svc.Login(context.Background(), "ANKITA.DAS@iitd.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = svc.Login(context.Background(), "nobody@iitd.ac.in")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "not an email")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	admin, ok := store.Snapshot().User("u_admin")
	require.True(t, ok)

	raw, err := svc.GenerateToken(context.Background(), admin)
	require.NoError(t, err)

	token, err := svc.ParseToken(raw)
	require.NoError(t, err)
	got, err := svc.CurrentUser(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
	assert.True(t, got.IsAdmin())
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u_admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	raw, err := forged.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	_, err = svc.ParseToken(raw)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCurrentUserRejectsBadClaims(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	tests := []struct {
		name  string
		token *jwt.Token
	}{
		{"nil token", nil},
		{"missing user id", jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{})},
		{"unknown user", jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u_gone"})},
		{"wrong claims type", jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CurrentUser(tc.token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestCurrentUserReflectsLedgerRole(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	student, _ := store.Snapshot().User("u1")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": student.ID,
		"role":    string(user.RoleAdmin),
	})
	got, err := svc.CurrentUser(token)
	require.NoError(t, err)
	assert.False(t, got.IsAdmin(), "role claim must not elevate privileges")
}

func TestEmptySecretNeverSignsOrVerifies(t *testing.T) {
	t.Parallel()
	store, err := ledger.Open(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	svc := auth.New(store, &config.Jwt{Expiry: time.Hour}, slog.Default())
	admin, ok := store.Snapshot().User("u_admin")
	require.True(t, ok)

	_, err = svc.GenerateToken(context.Background(), admin)
	assert.ErrorIs(t, err, auth.ErrNoSigningKey)

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": admin.ID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(""))
	_, err = svc.ParseToken(forged)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
