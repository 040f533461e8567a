package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/model"
)

const (
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"
	UserRoleHeader  = "X-User-Role"

	// ActorLocalKey stores the caller identity in Fiber's context locals.
	ActorLocalKey = "actor"
)

// Identity reads the caller identity set by the upstream gateway.
// Requests without a role header are treated as viewers.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(ActorLocalKey, model.Actor{
			UserID: strings.TrimSpace(c.Get(UserIDHeader)),
			Email:  strings.TrimSpace(c.Get(UserEmailHeader)),
			Role:   model.ParseRole(strings.ToLower(strings.TrimSpace(c.Get(UserRoleHeader)))),
			IP:     c.IP(),
		})
		return c.Next()
	}
}

// ActorFrom returns the identity stored by Identity. Without it, the caller
// is an anonymous viewer.
func ActorFrom(c *fiber.Ctx) model.Actor {
	if a, ok := c.Locals(ActorLocalKey).(model.Actor); ok {
		return a
	}
	return model.Actor{Role: model.RoleViewer, IP: c.IP()}
}

// RequireRole rejects callers whose role ranks below required.
func RequireRole(required model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ActorFrom(c).Role.Allows(required) {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
