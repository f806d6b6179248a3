package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defects-service/internal/domain"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// RequireRole ensures the actor holds one of the allowed global roles.
func RequireRole(allowed ...domain.ProjectRole) fiber.Handler {
	allowedSet := make(map[domain.ProjectRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures any actor is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
