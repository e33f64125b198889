package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/types"
)

// actorKey is the fiber.Locals key of the authenticated actor
const actorKey = "actor"

// SessionValidator resolves the actor of a session cookie. roles, when
// given, must all be held by the session.
type SessionValidator func(cookie string, roles []string) (services.Actor, error)

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin(validate SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, validate, []string{"admin"}, "authorization.admin")
	}
}

// AuthUser validates that the request carries any valid session. What the
// actor may do is decided by the capabilities of its roles.
func AuthUser(validate SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, validate, nil, "authorization.user")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, validate SessionValidator, roles []string, errorType string) error {
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	actor, err := validate(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// WithActor installs a fixed actor, for routes served without Authorizer
func WithActor(actor services.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// ActorFrom returns the authenticated actor of the request. Anonymous
// requests get an actor without capabilities.
func ActorFrom(c *fiber.Ctx) services.Actor {
	if actor, ok := c.Locals(actorKey).(services.Actor); ok {
		return actor
	}
	return services.Actor{}
}
