// Package request implements the financial request lifecycle: creation by a
// student, review by an administrator and closure.
package request

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/auditlog"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/shopspring/decimal"
)

// DefaultUrgencyWeight multiplies the urgency level into the feed score.
const DefaultUrgencyWeight = 25

// CreateInput holds the owner-supplied fields of a new request.
type CreateInput struct {
	Title           string
	Description     string
	Category        request.Category
	RequestedAmount decimal.Decimal
	Urgency         request.Urgency
	HideIdentity    bool
	Deadline        *time.Time
	ImageURL        string
}

// Service provides the request workflow.
type Service struct {
	store  *ledger.Store
	bus    eventbus.Bus
	weight float64
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithUrgencyWeight overrides DefaultUrgencyWeight. Non-positive values are ignored.
func WithUrgencyWeight(w float64) Option {
	return func(s *Service) {
		if w > 0 {
			s.weight = w
		}
	}
}

// New creates a new Service. bus may be nil when no events are wanted.
func New(
	store *ledger.Store,
	bus eventbus.Bus,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{store: store, bus: bus, weight: DefaultUrgencyWeight, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest opens a pending request owned by ownerID with nothing raised.
func (s *Service) CreateRequest(
	ctx context.Context,
	ownerID string,
	in CreateInput,
) (r request.Request, err error) {
	log := s.logger.With("context", "CreateRequest", "owner_id", ownerID)
	log.Info("CreateRequest started", "amount", in.RequestedAmount, "urgency", in.Urgency)
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		owner, err := tx.User(ownerID)
		if err != nil {
			return err
		}
		r, err = request.New().
			WithOwner(owner.ID, owner.FullName).
			WithTitle(in.Title).
			WithDescription(in.Description).
			WithCategory(in.Category).
			WithAmount(in.RequestedAmount).
			WithUrgency(in.Urgency, s.weight).
			WithHideIdentity(in.HideIdentity).
			WithDeadline(in.Deadline).
			WithImageURL(in.ImageURL).
			WithCreatedAt(tx.Now()).
			Build()
		if err != nil {
			return err
		}
		if err = tx.AppendRequest(r); err != nil {
			return err
		}
		now := tx.Now()
		owner.LastRequestDate = &now
		return tx.PutUser(owner)
	})
	if err != nil {
		log.Error("CreateRequest failed", "error", err)
		return request.Request{}, err
	}
	s.emit(ctx, &events.RequestCreated{
		Meta:            events.NewMeta(snap.Version, snap.UpdatedAt),
		RequestID:       r.ID,
		UserID:          r.UserID,
		RequestedAmount: r.RequestedAmount,
		UrgencyScore:    r.UrgencyScore,
	})
	log.Info("CreateRequest successful", "request_id", r.ID, "urgency_score", r.UrgencyScore)
	return
}

// GetRequest returns the request with the given id, unmasked.
func (s *Service) GetRequest(
	ctx context.Context,
	requestID string,
) (r request.Request, err error) {
	r, ok := s.store.Snapshot().Request(requestID)
	if !ok {
		err = request.ErrRequestNotFound
	}
	return
}

// DecideRequest approves or rejects a pending request. Approval stamps
// approved_at. A request that was already decided yields a conflict.
func (s *Service) DecideRequest(
	ctx context.Context,
	requestID string,
	decision domain.Decision,
	admin user.User,
) (r request.Request, err error) {
	log := s.logger.With(
		"context", "DecideRequest",
		"request_id", requestID,
		"decision", decision,
		"admin_id", admin.ID,
	)
	log.Info("DecideRequest started")
	if err = admin.RequireAdmin(); err != nil {
		log.Error("DecideRequest failed", "error", err)
		return request.Request{}, err
	}
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		r, err = tx.Request(requestID)
		if err != nil {
			return err
		}
		if err = r.Decide(decision, tx.Now()); err != nil {
			return err
		}
		if err = tx.PutRequest(r); err != nil {
			return err
		}
		tx.AppendLog(auditlog.New(
			auditlog.RequestDecisionAction(decision),
			r.ID,
			admin.ID,
			admin.FullName,
			auditlog.Detailf("Request", r.Title, string(decision), admin.FullName),
			tx.Now(),
		))
		return nil
	})
	if err != nil {
		log.Error("DecideRequest failed", "error", err)
		return request.Request{}, err
	}
	s.emit(ctx, &events.RequestDecided{
		Meta:      events.NewMeta(snap.Version, snap.UpdatedAt),
		RequestID: r.ID,
		Decision:  string(decision),
		AdminID:   admin.ID,
	})
	log.Info("DecideRequest successful", "status", r.Status)
	return
}

// CloseRequest retires an approved request from the feed.
func (s *Service) CloseRequest(
	ctx context.Context,
	requestID string,
	admin user.User,
) (r request.Request, err error) {
	log := s.logger.With("context", "CloseRequest", "request_id", requestID, "admin_id", admin.ID)
	log.Info("CloseRequest started")
	if err = admin.RequireAdmin(); err != nil {
		log.Error("CloseRequest failed", "error", err)
		return request.Request{}, err
	}
	snap, err := s.store.Do(ctx, func(tx *ledger.Tx) error {
		r, err = tx.Request(requestID)
		if err != nil {
			return err
		}
		if err = r.Close(); err != nil {
			return err
		}
		if err = tx.PutRequest(r); err != nil {
			return err
		}
		tx.AppendLog(auditlog.New(
			auditlog.ActionClosedRequest,
			r.ID,
			admin.ID,
			admin.FullName,
			auditlog.Detailf("Request", r.Title, string(request.StatusClosed), admin.FullName),
			tx.Now(),
		))
		return nil
	})
	if err != nil {
		log.Error("CloseRequest failed", "error", err)
		return request.Request{}, err
	}
	s.emit(ctx, &events.RequestClosed{
		Meta:      events.NewMeta(snap.Version, snap.UpdatedAt),
		RequestID: r.ID,
		AdminID:   admin.ID,
	})
	log.Info("CloseRequest successful", "amount_raised", r.AmountRaised)
	return
}

// Feed lists the approved requests ranked by order, with hidden
// identities masked.
func (s *Service) Feed(ctx context.Context, order request.FeedOrder) []request.Request {
	return s.store.Snapshot().Feed(order)
}

// Pending lists the admin review queue, oldest first.
func (s *Service) Pending(
	ctx context.Context,
	admin user.User,
) ([]request.Request, error) {
	if err := admin.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.store.Snapshot().PendingRequests(), nil
}

// ByOwner lists the requests owned by userID, newest first.
func (s *Service) ByOwner(ctx context.Context, userID string) []request.Request {
	return s.store.Snapshot().RequestsByUser(userID)
}

func (s *Service) emit(ctx context.Context, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Error("Failed to emit event", "type", evt.Type(), "error", err)
	}
}
