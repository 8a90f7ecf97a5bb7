package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/auth"
	"github.com/gasc/blood-bridge/internal/config"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// AuthSubject identifies the caller when changing password.
type AuthSubject struct {
	Type domain.SubjectType
	ID   string
}

// AuthService coordinates login and session flows for staff, donors and requestors.
type AuthService struct {
	donors     repository.DonorRepository
	staff      repository.StaffRepository
	sessions   repository.SessionRepository
	activity   *ActivityService
	mailer     Mailer
	logger     *zap.Logger
	tokenMgr   *auth.TokenManager
	bcryptCost int
	sessionTTL time.Duration
	codeTTL    time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	DonorRepo   repository.DonorRepository
	StaffRepo   repository.StaffRepository
	SessionRepo repository.SessionRepository
	Activity    *ActivityService
	Mailer      Mailer
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = LogMailer{From: cfg.Notification.EmailFrom, Logger: logger}
	}
	codeTTL := time.Duration(cfg.Auth.RequestorCodeTTLMinutes) * time.Minute
	if codeTTL <= 0 {
		codeTTL = 15 * time.Minute
	}
	return &AuthService{
		donors:     deps.DonorRepo,
		staff:      deps.StaffRepo,
		sessions:   deps.SessionRepo,
		activity:   deps.Activity,
		mailer:     mailer,
		logger:     logger,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		sessionTTL: time.Duration(cfg.Auth.RequestorSessionTTLMinutes) * time.Minute,
		codeTTL:    codeTTL,
	}
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, credentialsError(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff account deactivated")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, &staff.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := s.staff.TouchLogin(ctx, staff.ID); err != nil {
		s.logger.Warn("failed to record staff login time", zap.String("staff_id", staff.ID), zap.Error(err))
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeStaff,
		ActorID:    &staff.ID,
		Action:     domain.ActionStaffLogin,
		EntityType: "staff",
		EntityID:   &staff.ID,
	})
	return staff, token, exp, nil
}

// LoginDonor authenticates a donor. Unverified emails cannot log in.
func (s *AuthService) LoginDonor(ctx context.Context, email, password string) (*domain.Donor, string, time.Time, error) {
	donor, err := s.donors.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, credentialsError(err)
	}
	if err := auth.ComparePassword(donor.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !donor.EmailVerified {
		return nil, "", time.Time{}, apperrors.NewForbidden("email address not verified")
	}
	if !donor.IsActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("donor account deactivated")
	}
	token, exp, err := s.tokenMgr.GenerateToken(donor.ID, domain.SubjectTypeDonor, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return donor, token, exp, nil
}

// SendRequestorAccessCode emails a one-time code to the address. Only someone who can read that
// mailbox can open a requestor session for it.
func (s *AuthService) SendRequestorAccessCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	code := uuid.NewString()
	if err := s.sessions.SaveAccessCode(ctx, email, code, s.codeTTL); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	err := s.mailer.Send(ctx, Message{
		To:      email,
		Subject: "Your Blood Bridge access code",
		Body: fmt.Sprintf("Use this code to view and manage your blood requests:\n\n%s\n\nIt expires in %d minutes and works once.\n",
			code, int(s.codeTTL.Minutes())),
	})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// StartRequestorSession exchanges an emailed access code for an email-identified token. The
// session is held in Redis so it can be revoked before the token expires.
func (s *AuthService) StartRequestorSession(ctx context.Context, email, code string) (string, time.Time, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", time.Time{}, apperrors.NewValidationError("email and code required", nil)
	}
	ok, err := s.sessions.ConsumeAccessCode(ctx, email, code)
	if err != nil {
		return "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}
	if !ok {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid or expired access code")
	}
	sessionID := uuid.NewString()
	token, exp, err := s.tokenMgr.GenerateTokenWithTTL(email, domain.SubjectTypeRequestor, nil, sessionID, s.sessionTTL)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Create(ctx, sessionID, email, time.Until(exp)); err != nil {
		return "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}
	return token, exp, nil
}

// EndRequestorSession revokes the session.
func (s *AuthService) EndRequestorSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject AuthSubject, currentPassword, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	switch subject.Type {
	case domain.SubjectTypeDonor:
		donor, err := s.donors.GetByID(ctx, subject.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(donor.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		donor.PasswordHash = hash
		return apperrors.MapError(s.donors.Update(ctx, donor))
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		staff.PasswordHash = hash
		return apperrors.MapError(s.staff.Update(ctx, staff))
	default:
		return apperrors.NewForbidden("password change not supported for this subject")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func credentialsError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return apperrors.MapError(err)
}
