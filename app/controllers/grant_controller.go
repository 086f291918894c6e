package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/app/repository"
	"github.com/JonasWehrle/StagePass/internal/pkg/grants"
	"github.com/JonasWehrle/StagePass/internal/pkg/usercontext"
)

// GrantRequest issues a grant directly, e.g. a comp from a team manager.
type GrantRequest struct {
	UserID    uint       `json:"user_id" validate:"required"`
	Kind      string     `json:"kind" validate:"required,oneof=space experience"`
	UUID      string     `json:"uuid" validate:"required,max=36"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleGrantAccess creates an active grant. Only managers of the owning
// team may issue grants by hand.
func HandleGrantAccess(c *fiber.Ctx) error {
	var req GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.UUID = strings.TrimSpace(req.UUID)
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	resource, _, err := lookupResource(req.Kind, req.UUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Resource not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load resource")
	}

	caller := usercontext.GetUserID(c)
	decision, err := getResolver().Resolve(c.Context(), caller, resource)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve access")
	}
	if !decision.CanManage {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Manager role required")
	}

	grant, err := getLedger().GrantAccess(c.Context(), req.UserID, resource.Ref, resource.TeamID, req.ExpiresAt)
	if err != nil {
		if errors.Is(err, grants.ErrDuplicateActiveGrant) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":      "duplicate_grant",
				"message":    "User already holds an active grant for this purchasable",
				"grant_uuid": grant.UUID,
			})
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create grant")
	}

	return c.Status(fiber.StatusCreated).JSON(grantResponse(grant))
}

// HandleGrantCancel moves an active grant to cancelled.
func HandleGrantCancel(c *fiber.Ctx) error {
	return handleGrantTransition(c, models.GrantStatusCancelled)
}

// HandleGrantRefund moves an active grant to refunded.
func HandleGrantRefund(c *fiber.Ctx) error {
	return handleGrantTransition(c, models.GrantStatusRefunded)
}

func handleGrantTransition(c *fiber.Ctx, target string) error {
	uuid := strings.TrimSpace(c.Params("uuid"))
	if uuid == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Grant UUID missing")
	}

	grant, err := getLedger().GrantByUUID(c.Context(), uuid)
	if err != nil {
		if errors.Is(err, grants.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Grant not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load grant")
	}

	if err := requireTeamManager(c, grant.TeamID); err != nil {
		return err
	}

	switch target {
	case models.GrantStatusRefunded:
		err = getLedger().Refund(c.Context(), grant)
	default:
		err = getLedger().Cancel(c.Context(), grant)
	}
	if err != nil {
		if errors.Is(err, grants.ErrConcurrentModification) {
			return jsonError(c, fiber.StatusConflict, "conflict", "Grant was modified concurrently")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update grant")
	}

	return c.JSON(grantResponse(grant))
}

// requireTeamManager answers nil when the caller manages the given team.
func requireTeamManager(c *fiber.Ctx, teamID uint) error {
	caller := usercontext.GetUserID(c)
	if caller == 0 {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	team, err := repository.GetGlobalRepositories().Team.GetByID(teamID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load team")
	}
	if team.OwnerUserID == caller {
		return nil
	}

	membership, err := getResolver().Membership(c.Context(), caller, teamID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load membership")
	}
	if membership == nil || !membership.IsManager() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Manager role required")
	}
	return nil
}

func grantResponse(g *models.AccessGrant) fiber.Map {
	return fiber.Map{
		"uuid":             g.UUID,
		"user_id":          g.UserID,
		"team_id":          g.TeamID,
		"purchasable_kind": g.PurchasableKind,
		"purchasable_id":   g.PurchasableID,
		"status":           g.Status,
		"expires_at":       formatTimePtr(g.ExpiresAt),
		"created_at":       g.CreatedAt.UTC().Format(time.RFC3339),
	}
}
