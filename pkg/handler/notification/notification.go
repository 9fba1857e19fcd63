// Package notification tells students about administrator decisions.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/ledger"
)

// Notifier delivers a message to a user.
type Notifier interface {
	Notify(ctx context.Context, to user.User, subject, body string) error
}

// LogNotifier writes notifications to the log. It stands in for a mail or
// push channel.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, to user.User, subject, body string) error {
	n.Logger.InfoContext(ctx, "📬 Notification", "to", to.Email, "user_id", to.ID, "subject", subject, "body", body)
	return nil
}

// Snapshotter is the read side of the ledger store.
type Snapshotter interface {
	Snapshot() ledger.Snapshot
}

// HandleRequestDecided notifies the owner of a request about its review.
func HandleRequestDecided(store Snapshotter, notifier Notifier, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With("handler", "notification.HandleRequestDecided")
		evt, ok := e.(*events.RequestDecided)
		if !ok {
			log.Error("unexpected event type", "type", e.Type())
			return fmt.Errorf("notification.HandleRequestDecided: unexpected event %T", e)
		}
		snap := store.Snapshot()
		r, ok := snap.Request(evt.RequestID)
		if !ok {
			return fmt.Errorf("%w: %s", request.ErrRequestNotFound, evt.RequestID)
		}
		owner, ok := snap.User(r.UserID)
		if !ok {
			return fmt.Errorf("%w: %s", user.ErrUserNotFound, r.UserID)
		}
		subject := fmt.Sprintf("Your request %q was %s", r.Title, evt.Decision)
		body := "It is now visible in the public feed."
		if evt.Decision != string(request.StatusApproved) {
			body = "You can submit a new request at any time."
		}
		return notifier.Notify(ctx, owner, subject, body)
	}
}

// HandleVerificationDecided notifies a user about their identity review.
func HandleVerificationDecided(store Snapshotter, notifier Notifier, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With("handler", "notification.HandleVerificationDecided")
		evt, ok := e.(*events.VerificationDecided)
		if !ok {
			log.Error("unexpected event type", "type", e.Type())
			return fmt.Errorf("notification.HandleVerificationDecided: unexpected event %T", e)
		}
		u, ok := store.Snapshot().User(evt.UserID)
		if !ok {
			return fmt.Errorf("%w: %s", user.ErrUserNotFound, evt.UserID)
		}
		body := "You can now donate and raise requests."
		if !u.IsVerified {
			body = "Please resubmit your student ID."
		}
		return notifier.Notify(ctx, u, "Identity verification "+evt.Decision, body)
	}
}
