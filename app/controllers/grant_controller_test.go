package controllers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestGrantAccessValidatesRequest(t *testing.T) {
	app := fiber.New()
	app.Post("/grants", HandleGrantAccess)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `user_id=5`},
		{name: "missing user", body: `{"kind":"space","uuid":"abc"}`},
		{name: "stream is not grantable", body: `{"user_id":5,"kind":"stream","uuid":"abc"}`},
	}

	for _, tt := range tests {
		if code := postJSON(t, app, "/grants", tt.body); code != fiber.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tt.name, code)
		}
	}
}
