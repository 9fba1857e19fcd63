package notification_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/handler/notification"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, to user.User, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

type seedStore struct{ snap ledger.Snapshot }

func (s seedStore) Snapshot() ledger.Snapshot { return s.snap.Clone() }

func newSeedStore(t *testing.T) seedStore {
	t.Helper()
	snap, err := ledger.Seed()
	require.NoError(t, err)
	return seedStore{snap: snap}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHandleRequestDecided(t *testing.T) {
	t.Parallel()
	store := newSeedStore(t)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything,
		mock.MatchedBy(func(u user.User) bool { return u.ID == "u2" }),
		mock.MatchedBy(func(s string) bool { return strings.Contains(s, "approved") }),
		"It is now visible in the public feed.",
	).Return(nil).Once()

	h := notification.HandleRequestDecided(store, n, quiet)
	err := h(context.Background(), &events.RequestDecided{
		Meta:      events.NewMeta(2, time.Now()),
		RequestID: "r1",
		Decision:  string(domain.DecisionApproved),
		AdminID:   "u_admin",
	})
	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestHandleRequestDecidedUnknownRequest(t *testing.T) {
	t.Parallel()
	n := &mockNotifier{}
	h := notification.HandleRequestDecided(newSeedStore(t), n, quiet)
	err := h(context.Background(), &events.RequestDecided{RequestID: "r_gone"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleVerificationDecided(t *testing.T) {
	t.Parallel()
	n := &mockNotifier{}
	n.On("Notify", mock.Anything,
		mock.MatchedBy(func(u user.User) bool { return u.ID == "u7" }),
		"Identity verification rejected",
		"Please resubmit your student ID.",
	).Return(nil).Once()

	h := notification.HandleVerificationDecided(newSeedStore(t), n, quiet)
	err := h(context.Background(), &events.VerificationDecided{UserID: "u7", Decision: "rejected"})
	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestHandlersRejectWrongEvent(t *testing.T) {
	t.Parallel()
	store := newSeedStore(t)
	n := &mockNotifier{}
	assert.Error(t, notification.HandleRequestDecided(store, n, quiet)(context.Background(), &events.RequestClosed{}))
	assert.Error(t, notification.HandleVerificationDecided(store, n, quiet)(context.Background(), &events.RequestClosed{}))
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()
	n := notification.LogNotifier{Logger: quiet}
	assert.NoError(t, n.Notify(context.Background(), user.User{ID: "u1"}, "s", "b"))
}
