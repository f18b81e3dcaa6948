package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	auditrepo "github.com/stockroom/stockroom-backend/internal/audit/repository"
	auditservice "github.com/stockroom/stockroom-backend/internal/audit/service"
	"github.com/stockroom/stockroom-backend/internal/identity/domain"
	"github.com/stockroom/stockroom-backend/internal/identity/repository"
	"github.com/stockroom/stockroom-backend/internal/identity/token"
	"github.com/stockroom/stockroom-backend/internal/policy"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/logger"
	"github.com/stockroom/stockroom-backend/pkg/messaging"
)

// RegistrationListener is notified synchronously after a new account is
// registered, once the registration transaction has committed.
type RegistrationListener interface {
	UserRegistered(ctx context.Context, user *domain.User) error
}

// NotificationDirectory clears the new-user notification flag for a staff
// user once they have viewed the user list.
type NotificationDirectory interface {
	MarkSeen(ctx context.Context, userID int64) error
}

// Service implements account registration, authentication and the
// administrative user operations.
type Service struct {
	db            *database.DB
	users         *repository.UserRepository
	audit         *auditservice.Service
	tokens        *token.Manager
	listener      RegistrationListener
	notifications NotificationDirectory
	publisher     messaging.EventPublisher
	logger        *logger.Logger
}

// NewService creates a new identity service
func NewService(
	db *database.DB,
	users *repository.UserRepository,
	audit *auditservice.Service,
	tokens *token.Manager,
	listener RegistrationListener,
	notifications NotificationDirectory,
	publisher messaging.EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		db:            db,
		users:         users,
		audit:         audit,
		tokens:        tokens,
		listener:      listener,
		notifications: notifications,
		publisher:     publisher,
		logger:        log.WithComponent("identity"),
	}
}

// LoginResponse is returned on successful authentication
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	TokenType    string       `json:"token_type"`
	User         *domain.User `json:"user"`
}

// Register creates a new non-staff account. Public registration never
// produces a staff user.
func (s *Service) Register(ctx context.Context, req *domain.RegisterRequest, sourceIP string) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.Conflict("username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsStaff:      false,
		IsActive:     true,
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}

		act := &actor.Actor{ID: user.ID, Username: user.Username, Email: user.Email, SourceIP: sourceIP}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionCreate,
			"user", &user.ID, user.Username, "account registered")
	})
	if err != nil {
		return nil, err
	}

	if s.listener != nil {
		if err := s.listener.UserRegistered(ctx, user); err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("registration listener failed")
		}
	}

	s.publish(ctx, messaging.EventUserRegistered, messaging.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsStaff:  user.IsStaff,
	})

	return user, nil
}

// Login verifies credentials and issues a token pair. Deactivated
// accounts cannot authenticate.
func (s *Service) Login(ctx context.Context, req *domain.LoginRequest, sourceIP string) (*LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, errors.InvalidCredentials()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.InvalidCredentials()
	}

	pair, err := s.tokens.GenerateTokenPair(&token.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsStaff:  user.IsStaff,
	}, "")
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}

	now := time.Now().UTC()
	act := &actor.Actor{ID: user.ID, Username: user.Username, Email: user.Email, IsStaff: user.IsStaff, SourceIP: sourceIP}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.WithTx(tx).UpdateLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionLogin,
			"user", &user.ID, user.Username, "logged in")
	})
	if err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		TokenType:    pair.TokenType,
		User:         user,
	}, nil
}

// Logout records the end of a session. Token invalidation is up to the
// client; the audit trail still gets its LOGOUT entry.
func (s *Service) Logout(ctx context.Context, act *actor.Actor) error {
	if act == nil {
		return errors.Unauthorized("authentication required")
	}
	return s.audit.Record(ctx, nil, act, auditrepo.ActionLogout,
		"user", &act.ID, act.Username, "logged out")
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.Unauthorized("account no longer exists")
	}
	if !user.IsActive {
		return nil, errors.Unauthorized("account is deactivated")
	}

	return s.tokens.GenerateTokenPair(&token.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsStaff:  user.IsStaff,
	}, claims.SessionID)
}

// ListUsers returns all accounts for the administrative user list and
// clears the caller's new-user notification flag.
func (s *Service) ListUsers(ctx context.Context, act *actor.Actor) ([]*domain.User, error) {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.notifications.MarkSeen(ctx, act.ID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", act.ID).Msg("failed to clear notification flag")
	}

	return users, nil
}

// GetUser returns one account for the administrative views
func (s *Service) GetUser(ctx context.Context, act *actor.Actor, userID int64) (*domain.User, error) {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}
	return s.users.GetByID(ctx, userID)
}

// CountUsersByActivity returns the active and deactivated account counts
// for the admin dashboard
func (s *Service) CountUsersByActivity(ctx context.Context) (active, inactive int64, err error) {
	return s.users.CountByActivity(ctx)
}

// SetPassword lets an administrator reset another user's password
func (s *Service) SetPassword(ctx context.Context, act *actor.Actor, userID int64, newPassword string) error {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return errors.Forbidden(d.Reason)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash password")
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.WithTx(tx).UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionUpdate,
			"user", &user.ID, user.Username, "password reset")
	})
}

// Deactivate soft-deletes an account by clearing is_active. The record
// is kept; existing sessions are not revoked here. The audit trail logs
// the soft delete as a DELETE on the user.
func (s *Service) Deactivate(ctx context.Context, act *actor.Actor, userID int64) error {
	if err := s.setActive(ctx, act, userID, false, auditrepo.ActionDelete, "account deactivated"); err != nil {
		return err
	}

	s.publish(ctx, messaging.EventUserDeactivated, messaging.UserDeactivatedEvent{
		UserID:        userID,
		DeactivatedBy: act.ID,
	})
	return nil
}

// Reactivate restores a deactivated account
func (s *Service) Reactivate(ctx context.Context, act *actor.Actor, userID int64) error {
	if err := s.setActive(ctx, act, userID, true, auditrepo.ActionUpdate, "account reactivated"); err != nil {
		return err
	}

	s.publish(ctx, messaging.EventUserReactivated, messaging.UserReactivatedEvent{
		UserID:        userID,
		ReactivatedBy: act.ID,
	})
	return nil
}

func (s *Service) setActive(ctx context.Context, act *actor.Actor, userID int64, active bool, auditAction, detail string) error {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return errors.Forbidden(d.Reason)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.WithTx(tx).SetActive(ctx, user.ID, active); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditAction,
			"user", &user.ID, user.Username, detail)
	})
}

// publish sends a domain event to the broker. Publishing never gates the
// mutation: failures are logged and the committed state stands.
func (s *Service) publish(ctx context.Context, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
