package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/repository"
	"github.com/JonasWehrle/StagePass/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repos := repository.GetGlobalRepositories()
	account, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	teams, err := repos.Team.GetByOwner(account.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load teams")
	}
	teamIDs := make([]uint, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.ID)
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"username":      account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"owned_teams":   teamIDs,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
	})
}

// HandleListUserPurchases returns the caller's purchase history.
func HandleListUserPurchases(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	offset, limit := parsePagination(c)
	purchases, err := repository.GetGlobalRepositories().Purchase.ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load purchases")
	}

	out := make([]fiber.Map, 0, len(purchases))
	for i := range purchases {
		p := &purchases[i]
		out = append(out, fiber.Map{
			"id":               p.ID,
			"purchasable_kind": p.PurchasableKind,
			"purchasable_id":   p.PurchasableID,
			"amount_cents":     p.AmountCents,
			"currency":         p.Currency,
			"status":           p.Status,
			"completed_at":     formatTimePtr(p.CompletedAt),
		})
	}
	return c.JSON(fiber.Map{"purchases": out, "offset": offset, "limit": limit})
}
