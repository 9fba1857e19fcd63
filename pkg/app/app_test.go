package app_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	infraeventbus "github.com/amirasaad/studentaid/infra/eventbus"
	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/donation"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/ledger"
	requestsvc "github.com/amirasaad/studentaid/pkg/service/request"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	to      string
	subject string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, to user.User, subject, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{to: to.ID, subject: subject})
	return nil
}

func newApp(t *testing.T) (*app.App, *infraeventbus.MemoryEventBus, *recordingNotifier) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := ledger.Open(context.Background(), nil, ledger.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	bus := infraeventbus.NewWithMemory(logger)
	notifier := &recordingNotifier{}
	a := app.New(&app.Deps{
		Store:    store,
		EventBus: bus,
		Notifier: notifier,
		Logger:   logger,
	}, &config.App{
		Auth:   &config.Auth{Jwt: &config.Jwt{Secret: "test-secret"}},
		Ledger: &config.Ledger{UrgencyWeight: 25},
	})
	return a, bus, notifier
}

func member(t *testing.T, a *app.App, id string) user.User {
	t.Helper()
	u, err := a.UserService.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestRequestLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, bus, notifier := newApp(t)
	admin := member(t, a, "u_admin")

	r, err := a.RequestService.CreateRequest(ctx, "u1", requestsvc.CreateInput{
		Title:           "Lab equipment",
		Description:     "Soldering kit for the final year project",
		Category:        request.CategoryOther,
		RequestedAmount: decimal.NewFromInt(1000),
		Urgency:         request.UrgencyHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, r.Status)
	assert.InDelta(t, 75.0, r.UrgencyScore, 0.001)

	_, _, err = a.DonationService.RecordDonation(ctx, r.ID, member(t, a, "u2"), decimal.NewFromInt(100), donation.PaymentModeMock)
	assert.ErrorIs(t, err, domain.ErrConflict, "pending requests take no donations")

	r, err = a.RequestService.DecideRequest(ctx, r.ID, domain.DecisionApproved, admin)
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, r.Status)

	_, r, err = a.DonationService.RecordDonation(ctx, r.ID, member(t, a, "u2"), decimal.NewFromInt(400), donation.PaymentModeMock)
	require.NoError(t, err)
	_, r, err = a.DonationService.RecordDonation(ctx, r.ID, member(t, a, "u3"), decimal.NewFromInt(700), donation.PaymentModeTest)
	require.NoError(t, err)
	assert.True(t, r.AmountRaised.Equal(decimal.NewFromInt(1100)), "over-funding is kept")

	snap := a.Deps.Store.Snapshot()
	assert.Empty(t, snap.Unreconciled())
	assert.Len(t, snap.DonationsForRequest(r.ID), 2)

	r, err = a.RequestService.CloseRequest(ctx, r.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, request.StatusClosed, r.Status)
	for _, fr := range a.RequestService.Feed(ctx, request.FeedByUrgency) {
		assert.NotEqual(t, r.ID, fr.ID)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "u1", notifier.sent[0].to)
	assert.NotEmpty(t, bus.Published())
}

func TestVerificationNotifiesStudent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, _, notifier := newApp(t)

	u, err := a.UserService.DecideVerification(ctx, "u7", domain.DecisionApproved, member(t, a, "u_admin"))
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "u7", notifier.sent[0].to)
	assert.Equal(t, "Identity verification approved", notifier.sent[0].subject)
}

func TestNewWithoutBus(t *testing.T) {
	t.Parallel()
	store, err := ledger.Open(context.Background(), nil)
	require.NoError(t, err)
	defer store.Close(context.Background()) //nolint:errcheck

	a := app.New(&app.Deps{Store: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, &config.App{})
	require.NotNil(t, a.AuthService)
	_, err = a.RequestService.CreateRequest(context.Background(), "u1", requestsvc.CreateInput{
		Title:           "Hostel rent",
		Category:        request.CategoryHousing,
		RequestedAmount: decimal.NewFromInt(500),
		Urgency:         request.UrgencyLow,
	})
	assert.NoError(t, err)
}
