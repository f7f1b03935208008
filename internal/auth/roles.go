package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

func requireUser(check func(*domain.User) bool, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !check(principal.User) {
			return apperrors.NewForbidden(message)
		}
		return c.Next()
	}
}

// RequireSuperAdmin guards account and settings administration.
func RequireSuperAdmin() fiber.Handler {
	return requireUser((*domain.User).IsSuperAdmin, "super admin required")
}

// RequireSupervisor admits supervisors and super admins.
func RequireSupervisor() fiber.Handler {
	return requireUser((*domain.User).IsSupervisor, "supervisor role required")
}

// RequireAnyRole ensures the caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return requireUser(func(*domain.User) bool { return true }, "")
}
