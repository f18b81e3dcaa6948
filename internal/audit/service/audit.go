package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/internal/audit/repository"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// Service records and lists audit log entries. Recording runs inside the
// caller's transaction when one is supplied, so a mutation and its audit
// entry succeed or fail together.
type Service struct {
	repo   *repository.EntryRepository
	logger *logger.Logger
}

// NewService creates a new audit service
func NewService(repo *repository.EntryRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log.WithComponent("audit"),
	}
}

// Record appends one audit entry for an approved action. When tx is nil
// the entry is written outside any transaction.
func (s *Service) Record(ctx context.Context, tx *sqlx.Tx, act *actor.Actor, action, objectType string, objectID *int64, objectRepr, detail string) error {
	entry := &repository.Entry{
		Username:   "anonymous",
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		ObjectRepr: objectRepr,
		Detail:     detail,
	}

	if act != nil {
		id := act.ID
		entry.UserID = &id
		entry.Username = act.Username
		entry.IPAddress = act.SourceIP
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	if err := repo.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", action).
			Str("object_type", objectType).
			Msg("failed to record audit entry")
		return err
	}

	return nil
}

// Recent returns the newest entries for the admin dashboard
func (s *Service) Recent(ctx context.Context, limit int) ([]*repository.Entry, error) {
	return s.repo.Recent(ctx, limit)
}

// List returns the full audit log, newest first, paginated
func (s *Service) List(ctx context.Context, page, perPage int) ([]*repository.Entry, int64, error) {
	return s.repo.List(ctx, page, perPage)
}
