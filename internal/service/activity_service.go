package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// ActivityService writes and reads the audit trail.
type ActivityService struct {
	repo   repository.ActivityLogRepository
	logger *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(repo repository.ActivityLogRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Record stores an entry. A failed write is logged, never returned: the audited action has already
// happened.
func (s *ActivityService) Record(ctx context.Context, entry domain.ActivityLog) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Error("activity log write failed",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
	}
}

// List returns recent entries.
func (s *ActivityService) List(ctx context.Context, filter repository.ActivityFilter) ([]domain.ActivityLog, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return entries, nil
}

// ForEach streams every entry matching filter, oldest first. Errors returned by fn are passed
// through unchanged.
func (s *ActivityService) ForEach(ctx context.Context, filter repository.ActivityFilter, fn func(domain.ActivityLog) error) error {
	var fnErr error
	err := s.repo.ForEach(ctx, filter, func(entry domain.ActivityLog) error {
		fnErr = fn(entry)
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

func entityRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
