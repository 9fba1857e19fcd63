// Package auth binds sessions to ledger users with signed JWTs. There are no
// passwords: the caller is looked up by email and the token only carries the
// user id and role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when the caller cannot be identified.
var ErrUnauthorized = fmt.Errorf("auth: %w", domain.ErrUnauthorized)

// ErrNoSigningKey is returned when no JWT secret is configured. Tokens are
// never signed or accepted with an empty key.
var ErrNoSigningKey = errors.New("auth: jwt secret is not configured")

type Service struct {
	store  *ledger.Store
	cfg    *config.Jwt
	clock  func() time.Time
	logger *slog.Logger
}

func New(
	store *ledger.Store,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	return &Service{store: store, cfg: cfg, clock: time.Now, logger: logger}
}

// Login resolves the account registered under email.
func (s *Service) Login(
	ctx context.Context,
	email string,
) (u user.User, err error) {
	log := s.logger.With("context", "Login")
	log.Debug("Login called", "email", email)
	if !user.IsEmail(email) {
		err = domain.NewValidationError("email", "must be a valid email address")
		log.Error("Login failed", "error", err)
		return
	}
	u, ok := s.store.FindUserByEmail(email)
	if !ok {
		err = ErrUnauthorized
		log.Error("Login failed", "error", err)
		return
	}
	log.Info("Login successful", "user_id", u.ID)
	return
}

// GenerateToken signs an HS256 token for u.
func (s *Service) GenerateToken(
	ctx context.Context,
	u user.User,
) (string, error) {
	log := s.logger.With("user_id", u.ID)
	log.Debug("GenerateToken called")
	if s.cfg == nil || s.cfg.Secret == "" {
		log.Error("GenerateToken failed", "error", ErrNoSigningKey)
		return "", ErrNoSigningKey
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    string(u.Role),
		"exp":     s.clock().Add(s.cfg.Expiry).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		log.Error("GenerateToken failed", "error", err)
		return "", err
	}
	log.Info("GenerateToken successful")
	return tokenString, nil
}

// CurrentUser resolves the ledger user a verified token was issued for. The
// role is taken from the ledger, not from the claims.
func (s *Service) CurrentUser(token *jwt.Token) (u user.User, err error) {
	log := s.logger.With("context", "CurrentUser")
	if token == nil {
		log.Error("CurrentUser failed", "error", ErrUnauthorized)
		return user.User{}, ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Error("CurrentUser failed", "error", ErrUnauthorized)
		return user.User{}, ErrUnauthorized
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		log.Error("CurrentUser failed", "error", ErrUnauthorized)
		return user.User{}, ErrUnauthorized
	}
	u, ok = s.store.Snapshot().User(userID)
	if !ok {
		err = errors.Join(ErrUnauthorized, user.ErrUserNotFound)
		log.Error("CurrentUser failed", "user_id", userID, "error", err)
		return user.User{}, err
	}
	return u, nil
}

// ParseToken verifies a raw token string. Used where the fiber middleware
// does not run, e.g. the websocket upgrade.
func (s *Service) ParseToken(raw string) (*jwt.Token, error) {
	if s.cfg == nil || s.cfg.Secret == "" {
		return nil, errors.Join(ErrUnauthorized, ErrNoSigningKey)
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock))
	if err != nil {
		return nil, errors.Join(ErrUnauthorized, err)
	}
	return token, nil
}
