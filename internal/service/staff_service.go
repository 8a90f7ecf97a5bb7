package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/auth"
	"github.com/gasc/blood-bridge/internal/config"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// StaffService manages administrator and moderator accounts.
type StaffService struct {
	staff      repository.StaffRepository
	activity   *ActivityService
	bcryptCost int
	logger     *zap.Logger
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

// StaffUpdateInput carries mutable staff fields. Nil fields are left unchanged.
type StaffUpdateInput struct {
	Name   *string
	Role   *domain.StaffRole
	Active *bool
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, staff repository.StaffRepository, activity *ActivityService, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{
		staff:      staff,
		activity:   activity,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

func requireAdmin(actor *domain.StaffMember) error {
	if actor == nil || actor.Role != domain.StaffRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.StaffMember, name, email, password string, role domain.StaffRole) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.create(ctx, name, email, password, role)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeStaff,
		ActorID:    &actor.ID,
		Action:     domain.ActionStaffCreated,
		EntityType: "staff",
		EntityID:   &staff.ID,
		Details:    map[string]any{"email": staff.Email, "role": staff.Role},
	})
	return staff, nil
}

// BootstrapAdmin creates the first admin account when the staff table is empty.
func (s *StaffService) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.staff.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := s.create(ctx, "Administrator", email, password, domain.StaffRoleAdmin); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

func (s *StaffService) create(ctx context.Context, name, email, password string, role domain.StaffRole) (*domain.StaffMember, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, actor *domain.StaffMember, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// UpdateStaffMember updates staff details. Admins cannot demote or deactivate themselves.
func (s *StaffService) UpdateStaffMember(ctx context.Context, actor *domain.StaffMember, staffID string, input StaffUpdateInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if staff.ID == actor.ID {
		if (input.Role != nil && *input.Role != domain.StaffRoleAdmin) || (input.Active != nil && !*input.Active) {
			return nil, apperrors.NewConflict("admins cannot demote or deactivate themselves", nil)
		}
	}
	if input.Name != nil {
		staff.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		staff.Role = *input.Role
	}
	if input.Active != nil {
		staff.Active = *input.Active
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}
