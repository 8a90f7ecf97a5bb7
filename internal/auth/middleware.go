package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/gasc/blood-bridge/internal/domain"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for the lifetime of one request.
type Principal struct {
	SubjectType    domain.SubjectType
	Donor          *domain.Donor
	Staff          *domain.StaffMember
	RequestorEmail string
	SessionID      string
}

// ActorID returns the identifier recorded in activity logs.
func (p *Principal) ActorID() *string {
	var id string
	switch {
	case p == nil:
		return nil
	case p.Staff != nil:
		id = p.Staff.ID
	case p.Donor != nil:
		id = p.Donor.ID
	case p.RequestorEmail != "":
		id = p.RequestorEmail
	default:
		return nil
	}
	return &id
}

// DonorLoader loads donor principals.
type DonorLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Donor, error)
}

// StaffLoader loads staff principals.
type StaffLoader interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
}

// SessionChecker confirms a requestor session has not been revoked.
type SessionChecker interface {
	Lookup(ctx context.Context, sessionID string) (string, bool, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	donors   DonorLoader
	staff    StaffLoader
	sessions SessionChecker
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, donors DonorLoader, staff StaffLoader, sessions SessionChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, donors: donors, staff: staff, sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	ctx := c.UserContext()
	principal := &Principal{SubjectType: claims.Subject}

	switch claims.Subject {
	case domain.SubjectTypeDonor:
		donor, err := m.donors.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("donor not found")
			}
			return apperrors.MapError(err)
		}
		if !donor.IsActive {
			return apperrors.NewForbidden("donor account deactivated")
		}
		principal.Donor = donor
	case domain.SubjectTypeStaff:
		staff, err := m.staff.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("staff not found")
			}
			return apperrors.MapError(err)
		}
		if !staff.Active {
			return apperrors.NewForbidden("staff account deactivated")
		}
		principal.Staff = staff
	case domain.SubjectTypeRequestor:
		email, ok, err := m.sessions.Lookup(ctx, claims.ID)
		if err != nil {
			return apperrors.NewStoreUnavailable(err)
		}
		if !ok || !strings.EqualFold(email, claims.SubjectID) {
			return apperrors.NewUnauthorized("session expired")
		}
		principal.RequestorEmail = claims.SubjectID
		principal.SessionID = claims.ID
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
