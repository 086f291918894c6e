package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/repository"
)

// HandleTeamStats returns headline numbers for a team dashboard. Managers
// only.
func HandleTeamStats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid team id")
	}
	teamID := uint(id)

	repos := repository.GetGlobalRepositories()
	team, err := repos.Team.GetByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load team")
	}

	if err := requireTeamManager(c, teamID); err != nil {
		return err
	}

	memberCount, err := repos.Team.MemberCount(teamID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count members")
	}
	grantCount, err := repos.Team.ActiveGrantCount(teamID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count grants")
	}
	purchaseCount, err := repos.Purchase.CountByTeam(teamID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count purchases")
	}

	return c.JSON(fiber.Map{
		"team_id":       team.ID,
		"name":          team.Name,
		"members":       memberCount,
		"active_grants": grantCount,
		"purchases":     purchaseCount,
	})
}

// HandleTeamMembers lists a team's memberships with their role sets.
func HandleTeamMembers(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid team id")
	}
	teamID := uint(id)

	if err := requireTeamManager(c, teamID); err != nil {
		return err
	}

	memberships, err := repository.GetGlobalRepositories().Team.Memberships(teamID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load memberships")
	}

	out := make([]fiber.Map, 0, len(memberships))
	for i := range memberships {
		m := &memberships[i]
		out = append(out, fiber.Map{
			"user_id": m.UserID,
			"roles":   m.RoleSet(),
		})
	}
	return c.JSON(fiber.Map{"team_id": teamID, "members": out})
}
