package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSessions accepts the cookie "good" for a user and "boss" for an admin
func fakeSessions(cookie string, roles []string) (services.Actor, error) {
	var actor services.Actor
	switch cookie {
	case "good":
		actor = services.NewActor("alice", "user")
	case "boss":
		actor = services.NewActor("root", "admin")
	default:
		return services.Actor{}, errors.New("unknown session")
	}
	for _, role := range roles {
		if !slices.Contains(actor.Roles, role) {
			return services.Actor{}, errors.New("missing role " + role)
		}
	}
	return actor, nil
}

func newApp(guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/who", guard, func(c *fiber.Ctx) error {
		return c.SendString(ActorFrom(c).ID)
	})
	return app
}

func get(t *testing.T, app *fiber.App, cookie string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("GET", "/who", nil)
	if cookie != "" {
		req.Header.Set("Cookie", "cookie_session="+cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestAuthUser(t *testing.T) {
	app := newApp(AuthUser(fakeSessions))

	status, body := get(t, app, "good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice", string(body))

	status, body = get(t, app, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "authorization.user", envelope["type"])

	status, _ = get(t, app, "forged")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAuthAdmin(t *testing.T) {
	app := newApp(AuthAdmin(fakeSessions))

	status, body := get(t, app, "boss")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "root", string(body))

	status, body = get(t, app, "good")
	assert.Equal(t, fiber.StatusForbidden, status)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "authorization.admin", envelope["type"])
}

func TestActorFromWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/who", func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if actor.ID != "" {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/who", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/core", func(c *fiber.Ctx) error {
		return types.NewError(types.KindInvalidTransition, "accepted", "no edge")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/core", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
