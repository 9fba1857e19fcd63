// Package user implements registration and the identity verification
// workflow on top of the ledger store.
package user

import (
	"context"
	"log/slog"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/auditlog"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/ledger"
)

// Service provides user registration, lookup and verification.
type Service struct {
	store  *ledger.Store
	bus    eventbus.Bus
	logger *slog.Logger
}

// New creates a new Service. bus may be nil when no events are wanted.
func New(
	store *ledger.Store,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// RegisterUser creates an account. Emails are unique regardless of case.
func (s *Service) RegisterUser(
	ctx context.Context,
	reg user.Registration,
) (u user.User, err error) {
	log := s.logger.With("context", "RegisterUser", "email", reg.Email)
	log.Info("RegisterUser started")
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		u, err = user.New(reg, tx.Now())
		if err != nil {
			return err
		}
		return tx.AppendUser(u)
	})
	if err != nil {
		log.Error("RegisterUser failed", "error", err)
		return user.User{}, err
	}
	s.emit(ctx, &events.UserRegistered{
		Meta:   events.NewMeta(snap.Version, snap.UpdatedAt),
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
	})
	log.Info("RegisterUser successful", "user_id", u.ID, "role", u.Role)
	return
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(
	ctx context.Context,
	userID string,
) (u user.User, err error) {
	u, ok := s.store.Snapshot().User(userID)
	if !ok {
		err = user.ErrUserNotFound
		s.logger.Debug("GetUser failed", "user_id", userID, "error", err)
	}
	return
}

// FindByEmail performs a case-insensitive exact match.
func (s *Service) FindByEmail(
	ctx context.Context,
	email string,
) (u user.User, err error) {
	u, ok := s.store.FindUserByEmail(email)
	if !ok {
		err = user.ErrUserNotFound
	}
	return
}

// SubmitVerification stores identity evidence and puts the user back into
// review. Allowed from any verification state.
func (s *Service) SubmitVerification(
	ctx context.Context,
	userID, institution, idCardURL string,
) (u user.User, err error) {
	log := s.logger.With("context", "SubmitVerification", "user_id", userID)
	log.Info("SubmitVerification started")
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		u, err = tx.User(userID)
		if err != nil {
			return err
		}
		if err = u.SubmitVerification(institution, idCardURL); err != nil {
			return err
		}
		return tx.PutUser(u)
	})
	if err != nil {
		log.Error("SubmitVerification failed", "error", err)
		return user.User{}, err
	}
	s.emit(ctx, &events.VerificationSubmitted{
		Meta:        events.NewMeta(snap.Version, snap.UpdatedAt),
		UserID:      u.ID,
		Institution: u.CollegeName,
	})
	log.Info("SubmitVerification successful", "institution", u.CollegeName)
	return
}

// DecideVerification applies an administrator verdict and appends one audit
// entry. Repeating the same verdict changes nothing but is still logged.
func (s *Service) DecideVerification(
	ctx context.Context,
	userID string,
	decision domain.Decision,
	admin user.User,
) (u user.User, err error) {
	log := s.logger.With(
		"context", "DecideVerification",
		"user_id", userID,
		"decision", decision,
		"admin_id", admin.ID,
	)
	log.Info("DecideVerification started")
	if err = admin.RequireAdmin(); err != nil {
		log.Error("DecideVerification failed", "error", err)
		return user.User{}, err
	}
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		u, err = tx.User(userID)
		if err != nil {
			return err
		}
		if err = u.DecideVerification(decision); err != nil {
			return err
		}
		if err = tx.PutUser(u); err != nil {
			return err
		}
		tx.AppendLog(auditlog.New(
			auditlog.UserDecisionAction(decision),
			u.ID,
			admin.ID,
			admin.FullName,
			auditlog.Detailf("User", u.FullName, string(decision), admin.FullName),
			tx.Now(),
		))
		return nil
	})
	if err != nil {
		log.Error("DecideVerification failed", "error", err)
		return user.User{}, err
	}
	s.emit(ctx, &events.VerificationDecided{
		Meta:     events.NewMeta(snap.Version, snap.UpdatedAt),
		UserID:   u.ID,
		Decision: string(decision),
		AdminID:  admin.ID,
	})
	log.Info("DecideVerification successful", "is_verified", u.IsVerified)
	return
}

// PendingVerifications lists users awaiting an identity decision.
func (s *Service) PendingVerifications(
	ctx context.Context,
	admin user.User,
) ([]user.User, error) {
	if err := admin.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.store.Snapshot().PendingVerifications(), nil
}

// Summary totals the aid userID received and the donations they made.
func (s *Service) Summary(
	ctx context.Context,
	userID string,
) (ledger.UserSummary, error) {
	snap := s.store.Snapshot()
	if _, ok := snap.User(userID); !ok {
		return ledger.UserSummary{}, user.ErrUserNotFound
	}
	return snap.Summary(userID), nil
}

func (s *Service) emit(ctx context.Context, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Failed to emit event", "type", evt.Type(), "error", err)
	}
}
