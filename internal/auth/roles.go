package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/domain"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

// RequireRoles ensures the authenticated principal holds one of the allowed
// roles. It must run after the authentication gate in the pipeline.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireSuperAdmin restricts a route to super-admins.
func RequireSuperAdmin() fiber.Handler {
	return RequireRoles(domain.RoleSuperAdmin)
}

// RequireAgency restricts a route to agency accounts.
func RequireAgency() fiber.Handler {
	return RequireRoles(domain.RoleAgency)
}

// RequireUser restricts a route to end-users.
func RequireUser() fiber.Handler {
	return RequireRoles(domain.RoleUser)
}
