package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/JonasWehrle/StagePass/internal/pkg/usercontext"
)

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAccessCheckAnonymousCannotOverrideUser(t *testing.T) {
	app := fiber.New()
	app.Post("/access/check", HandleAccessCheck)

	// No auth middleware ran, so the caller resolves as anonymous. Asking
	// for another user's decision must be rejected before any lookup.
	code := postJSON(t, app, "/access/check", `{"user_id":5,"kind":"experience","uuid":"abc"}`)
	if code != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous user_id override, got %d", code)
	}
}

func TestAccessCheckAuthenticatedPassesOverrideGate(t *testing.T) {
	app := fiber.New()
	app.Use(recover.New())
	app.Post("/access/check", func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{UserID: 3, Username: "creator", IsLoggedIn: true})
		return c.Next()
	}, HandleAccessCheck)

	// A logged-in caller clears the override gate; without a repository
	// backing the lookup the handler fails later with a 500, never a 401.
	code := postJSON(t, app, "/access/check", `{"user_id":5,"kind":"experience","uuid":"abc"}`)
	if code == fiber.StatusUnauthorized {
		t.Fatalf("authenticated override must not be rejected as unauthorized")
	}
}

func TestAccessCheckValidatesRequest(t *testing.T) {
	app := fiber.New()
	app.Post("/access/check", HandleAccessCheck)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `kind=experience`},
		{name: "missing uuid", body: `{"kind":"experience"}`},
		{name: "unknown kind", body: `{"kind":"album","uuid":"abc"}`},
	}

	for _, tt := range tests {
		if code := postJSON(t, app, "/access/check", tt.body); code != fiber.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tt.name, code)
		}
	}
}
