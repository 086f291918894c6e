package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/app/repository"
	"github.com/JonasWehrle/StagePass/internal/pkg/entitlements"
	"github.com/JonasWehrle/StagePass/internal/pkg/usercontext"
)

// AccessCheckRequest asks for an entitlement decision on one resource. The
// user defaults to the caller; authenticated backends may check on behalf of
// another user (or user 0 for anonymous).
type AccessCheckRequest struct {
	UserID *uint  `json:"user_id,omitempty"`
	Kind   string `json:"kind" validate:"required,oneof=space experience stream"`
	UUID   string `json:"uuid" validate:"required,max=36"`
}

// HandleAccessCheck resolves the caller's access to a space, experience or
// stream and returns the full decision.
func HandleAccessCheck(c *fiber.Ctx) error {
	var req AccessCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.UUID = strings.TrimSpace(req.UUID)
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	// Only authenticated callers may check on behalf of another user;
	// anonymous requests always resolve as themselves.
	userID := usercontext.GetUserID(c)
	if req.UserID != nil {
		if !usercontext.IsLoggedIn(c) {
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required to check another user")
		}
		userID = *req.UserID
	}

	resource, stream, err := lookupResource(req.Kind, req.UUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Resource not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load resource")
	}

	decision, err := getResolver().Resolve(c.Context(), userID, resource)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve access")
	}

	// Stream visibility has its own state gating (rehearsal is team-only),
	// so the view bit comes from the lifecycle policy instead.
	if stream != nil {
		canView, err := getStreams().CanView(c.Context(), userID, stream)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve access")
		}
		decision.CanView = canView
	}

	return c.JSON(fiber.Map{
		"user_id":       userID,
		"kind":          req.Kind,
		"uuid":          req.UUID,
		"role":          decision.Role,
		"can_view":      decision.CanView,
		"can_manage":    decision.CanManage,
		"can_broadcast": decision.CanBroadcast,
	})
}

// lookupResource builds the resolver's resource view from a public UUID. A
// stream checks as its owning experience and is returned alongside so the
// caller can apply stream-specific gating.
func lookupResource(kind, uuid string) (entitlements.Resource, *models.Stream, error) {
	repos := repository.GetGlobalRepositories()

	switch kind {
	case "space":
		space, err := repos.Catalog.GetSpaceByUUID(uuid)
		if err != nil {
			return entitlements.Resource{}, nil, err
		}
		return entitlements.SpaceResource(space), nil, nil
	case "stream":
		stream, err := repos.Stream.GetByUUID(uuid)
		if err != nil {
			return entitlements.Resource{}, nil, err
		}
		res, err := experienceResourceByID(repos, stream.ExperienceID)
		return res, stream, err
	default: // experience
		exp, err := repos.Catalog.GetExperienceByUUID(uuid)
		if err != nil {
			return entitlements.Resource{}, nil, err
		}
		res, err := experienceResourceByID(repos, exp.ID)
		return res, nil, err
	}
}

func experienceResourceByID(repos *repository.Repositories, experienceID uint) (entitlements.Resource, error) {
	exp, err := repos.Catalog.GetExperienceByID(experienceID)
	if err != nil {
		return entitlements.Resource{}, err
	}
	space, err := repos.Catalog.GetSpaceByID(exp.SpaceID)
	if err != nil {
		return entitlements.Resource{}, err
	}
	return entitlements.ExperienceResource(exp, space), nil
}
