package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/app/repository"
	"github.com/JonasWehrle/StagePass/internal/pkg/usercontext"
)

// WaitlistJoinRequest queues the caller (or a bare email) on a pass.
type WaitlistJoinRequest struct {
	AccessPassID uint   `json:"access_pass_id" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
}

// HandleWaitlistJoin adds an entry to a pass's waitlist.
func HandleWaitlistJoin(c *fiber.Ctx) error {
	var req WaitlistJoinRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	repos := repository.GetGlobalRepositories()
	pass, err := repos.Catalog.GetPassByID(req.AccessPassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Access pass not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load access pass")
	}
	if !pass.WaitlistEnabled {
		return jsonError(c, fiber.StatusConflict, "waitlist_disabled", "This pass has no waitlist")
	}

	entry := &models.WaitlistEntry{
		AccessPassID: pass.ID,
		Email:        req.Email,
		Status:       models.WaitlistStatusPending,
	}
	if callerID := usercontext.GetUserID(c); callerID != 0 {
		entry.UserID = &callerID
	}
	if err := repos.Waitlist.Add(entry); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to join waitlist")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     entry.ID,
		"status": entry.Status,
	})
}

// HandleWaitlistApprove approves a pending entry and, when the entry belongs
// to a known user, issues a free grant on the pass's space.
func HandleWaitlistApprove(c *fiber.Ctx) error {
	return decideWaitlistEntry(c, models.WaitlistStatusApproved)
}

// HandleWaitlistReject rejects a pending entry.
func HandleWaitlistReject(c *fiber.Ctx) error {
	return decideWaitlistEntry(c, models.WaitlistStatusRejected)
}

func decideWaitlistEntry(c *fiber.Ctx, target string) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid waitlist entry id")
	}

	repos := repository.GetGlobalRepositories()
	entry, err := repos.Waitlist.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Waitlist entry not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load waitlist entry")
	}

	space, err := repos.Catalog.GetSpaceByID(entry.AccessPass.SpaceID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load space")
	}
	if err := requireTeamManager(c, space.TeamID); err != nil {
		return err
	}

	decided, err := repos.Waitlist.DecideIf(entry.ID, models.WaitlistStatusPending, target)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update waitlist entry")
	}
	if !decided {
		return jsonError(c, fiber.StatusConflict, "conflict", "Entry was already decided")
	}

	response := fiber.Map{"id": entry.ID, "status": target}

	// Approval of a known user immediately issues the free grant; email-only
	// entries get their grant when the account is claimed.
	if target == models.WaitlistStatusApproved && entry.UserID != nil {
		grant, err := getLedger().GrantAccess(c.Context(), *entry.UserID, space.Ref(), space.TeamID, nil)
		if err != nil {
			log.Errorf("[Waitlist] Grant for approved entry %d failed: %v", entry.ID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Approved but grant creation failed")
		}
		response["grant_uuid"] = grant.UUID
	}

	return c.JSON(response)
}
