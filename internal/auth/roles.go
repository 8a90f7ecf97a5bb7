package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/domain"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// RequireDonor ensures a donor is authenticated.
func RequireDonor() fiber.Handler {
	return requireSubject(domain.SubjectTypeDonor, "donor required")
}

// RequireRequestor ensures a requestor session is active.
func RequireRequestor() fiber.Handler {
	return requireSubject(domain.SubjectTypeRequestor, "requestor session required")
}

func requireSubject(subject domain.SubjectType, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != subject {
			return apperrors.NewForbidden(message)
		}
		return c.Next()
	}
}

// RequireStaffRole ensures the staff principal has one of the allowed roles. No roles means any
// staff member.
func RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeStaff || principal.Staff == nil {
			return apperrors.NewForbidden("staff role required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Staff.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
