package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/app/repository"
	"github.com/JonasWehrle/StagePass/internal/pkg/streams"
	"github.com/JonasWehrle/StagePass/internal/pkg/usercontext"
)

// StreamTransitionRequest moves a stream through its lifecycle.
type StreamTransitionRequest struct {
	Target string `json:"target" validate:"required,oneof=scheduled rehearsal live ended"`
	Reason string `json:"reason,omitempty" validate:"max=200"`
}

// HandleCreateStream schedules a new stream under an experience. Caller must
// be able to broadcast there.
func HandleCreateStream(c *fiber.Ctx) error {
	var req struct {
		ExperienceUUID string `json:"experience_uuid" validate:"required,max=36"`
		Title          string `json:"title" validate:"max=200"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	repos := repository.GetGlobalRepositories()
	exp, err := repos.Catalog.GetExperienceByUUID(strings.TrimSpace(req.ExperienceUUID))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Experience not found")
	}
	space, err := repos.Catalog.GetSpaceByID(exp.SpaceID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load space")
	}

	caller := usercontext.GetUserID(c)
	membership, err := getResolver().Membership(c.Context(), caller, space.TeamID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load membership")
	}
	if membership == nil || membership.IsBuyerOnly() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Broadcast role required")
	}

	stream := &models.Stream{
		ExperienceID: exp.ID,
		Title:        strings.TrimSpace(req.Title),
		Status:       models.StreamStatusScheduled,
	}
	if err := repos.Stream.Create(stream); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create stream")
	}
	return c.Status(fiber.StatusCreated).JSON(streamResponse(stream))
}

// HandleStreamTransition applies a lifecycle transition to a stream.
func HandleStreamTransition(c *fiber.Ctx) error {
	var req StreamTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Target = strings.ToLower(strings.TrimSpace(req.Target))
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	stream, err := loadStream(c)
	if err != nil {
		return err
	}

	caller := usercontext.GetUserID(c)
	canBroadcast, err := getStreams().CanBroadcast(c.Context(), caller, stream)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve access")
	}
	if !canBroadcast {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Broadcast role required")
	}

	reason := req.Reason
	if req.Target == models.StreamStatusEnded && reason == "" {
		reason = streams.ReasonManual
	}

	if err := getStreams().Transition(c.Context(), stream, req.Target, reason); err != nil {
		switch {
		case errors.Is(err, streams.ErrInvalidTransition):
			return jsonError(c, fiber.StatusConflict, "invalid_transition",
				"Stream cannot move from "+stream.Status+" to "+req.Target)
		case errors.Is(err, streams.ErrConcurrentModification):
			return jsonError(c, fiber.StatusConflict, "conflict", "Stream was modified concurrently")
		default:
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Transition failed")
		}
	}

	return c.JSON(streamResponse(stream))
}

// HandleStreamToken returns a provider access token for the caller. Publish
// capability follows the broadcast decision.
func HandleStreamToken(c *fiber.Ctx) error {
	stream, err := loadStream(c)
	if err != nil {
		return err
	}

	caller := usercontext.GetUserID(c)
	token, canPublish, err := getStreams().AccessToken(c.Context(), caller, stream)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to issue token")
	}
	if token == "" {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "No access to this stream")
	}

	return c.JSON(fiber.Map{
		"token":       token,
		"can_publish": canPublish,
		"room_id":     stream.RoomID,
	})
}

// HandleStreamParticipants lists who is currently in the stream's room.
func HandleStreamParticipants(c *fiber.Ctx) error {
	stream, err := loadStream(c)
	if err != nil {
		return err
	}

	if err := requireStreamViewer(c, stream); err != nil {
		return err
	}

	participants, err := getStreams().Participants(c.Context(), stream)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to query participants")
	}
	if participants == nil {
		participants = []string{}
	}
	return c.JSON(fiber.Map{"participants": participants, "count": len(participants)})
}

// HandleGetStream returns stream state for viewers.
func HandleGetStream(c *fiber.Ctx) error {
	stream, err := loadStream(c)
	if err != nil {
		return err
	}
	if err := requireStreamViewer(c, stream); err != nil {
		return err
	}
	return c.JSON(streamResponse(stream))
}

func loadStream(c *fiber.Ctx) (*models.Stream, error) {
	uuid := strings.TrimSpace(c.Params("uuid"))
	if uuid == "" {
		return nil, jsonError(c, fiber.StatusBadRequest, "bad_request", "Stream UUID missing")
	}
	stream, err := getStreams().GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, streams.ErrNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Stream not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load stream")
	}
	return stream, nil
}

func requireStreamViewer(c *fiber.Ctx, stream *models.Stream) error {
	caller := usercontext.GetUserID(c)
	canView, err := getStreams().CanView(c.Context(), caller, stream)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve access")
	}
	if !canView {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "No access to this stream")
	}
	return nil
}

func streamResponse(s *models.Stream) fiber.Map {
	return fiber.Map{
		"uuid":          s.UUID,
		"experience_id": s.ExperienceID,
		"title":         s.Title,
		"status":        s.Status,
		"started_at":    formatTimePtr(s.StartedAt),
		"ended_at":      formatTimePtr(s.EndedAt),
		"ended_reason":  s.EndedReason,
		"created_at":    s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
