package streams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/entitlements"
	"github.com/JonasWehrle/StagePass/internal/pkg/providers"
)

// Termination reasons recorded when a stream is forced to end.
const (
	ReasonMaxDuration       = "exceeded maximum duration"
	ReasonBroadcasterAbsent = "Broadcaster disconnected"
	ReasonNoViewers         = "no viewers"
	ReasonManual            = "ended by broadcaster"
)

// Service drives the stream state machine and its provider side effects.
type Service struct {
	repo     Repository
	resolver *entitlements.Resolver
	video    providers.VideoRoomProvider
	chat     providers.ChatRoomProvider
}

// NewService creates a stream lifecycle service from injected collaborators.
func NewService(repo Repository, resolver *entitlements.Resolver, video providers.VideoRoomProvider, chat providers.ChatRoomProvider) *Service {
	return &Service{repo: repo, resolver: resolver, video: video, chat: chat}
}

// NewServiceFromDB wires the lifecycle service against GORM with the given
// providers.
func NewServiceFromDB(db *gorm.DB, video providers.VideoRoomProvider, chat providers.ChatRoomProvider) *Service {
	return NewService(NewRepository(db), entitlements.NewResolverFromDB(db), video, chat)
}

// GetByUUID loads a stream by its public identifier.
func (s *Service) GetByUUID(uuid string) (*models.Stream, error) {
	st, err := s.repo.StreamByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

// Transition moves a stream to the target status, running the entry side
// effects for that status. The status write is guarded on the current
// status, so a concurrent transition loses cleanly instead of applying
// twice.
func (s *Service) Transition(ctx context.Context, stream *models.Stream, target, reason string) error {
	if stream == nil {
		return ErrNotFound
	}
	if !stream.CanTransitionTo(target) {
		if stream.Status == target {
			return nil
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, stream.Status, target)
	}

	switch target {
	case models.StreamStatusLive:
		return s.goLive(ctx, stream)
	case models.StreamStatusEnded:
		return s.end(ctx, stream, reason)
	default:
		_, err := s.applyStatus(stream, target, map[string]interface{}{"status": target})
		return err
	}
}

// goLive enters the live state: ensure the external rooms exist, then flip
// the status. Room creation is idempotent — an existing room id skips the
// provider call, so a retried transition never creates a second room.
func (s *Service) goLive(ctx context.Context, stream *models.Stream) error {
	if stream.RoomID == "" {
		callCtx, cancel := providers.WithTimeout(ctx)
		handle, err := s.video.CreateRoom(callCtx, stream.UUID)
		cancel()
		if err != nil {
			return fmt.Errorf("create video room for stream %s: %w", stream.UUID, err)
		}
		stream.RoomID = handle.RoomID
	}

	if stream.ChatChannelID == "" {
		exp, space, err := s.owningExperience(stream)
		if err != nil {
			return err
		}
		ownerRef := fmt.Sprintf("team-%d", space.TeamID)
		callCtx, cancel := providers.WithTimeout(ctx)
		channelID, err := s.chat.CreateChannel(callCtx, stream.UUID, exp.Name, ownerRef)
		cancel()
		if err != nil {
			return fmt.Errorf("create chat channel for stream %s: %w", stream.UUID, err)
		}
		stream.ChatChannelID = channelID
	}

	if err := s.repo.SaveRoomIDs(stream.ID, stream.RoomID, stream.ChatChannelID); err != nil {
		return err
	}

	updates := map[string]interface{}{"status": models.StreamStatusLive}
	if stream.StartedAt == nil {
		now := time.Now()
		updates["started_at"] = &now
		stream.StartedAt = &now
	}
	_, err := s.applyStatus(stream, models.StreamStatusLive, updates)
	return err
}

// end enters the terminal state. The status flip happens first; room
// cleanup afterwards is best-effort and never blocks the transition. The
// guarded update also makes sure cleanup runs at most once even when two
// sweeps race.
func (s *Service) end(ctx context.Context, stream *models.Stream, reason string) error {
	if reason == "" {
		reason = ReasonManual
	}
	updates := map[string]interface{}{
		"status":       models.StreamStatusEnded,
		"ended_reason": reason,
	}
	if stream.EndedAt == nil {
		now := time.Now()
		updates["ended_at"] = &now
		stream.EndedAt = &now
	}

	changed, err := s.applyStatus(stream, models.StreamStatusEnded, updates)
	if err != nil {
		return err
	}
	if !changed {
		// Another writer ended the stream first and already ran cleanup.
		return nil
	}
	stream.EndedReason = reason

	if stream.RoomID != "" {
		callCtx, cancel := providers.WithTimeout(ctx)
		err := s.video.DeleteRoom(callCtx, stream.UUID)
		cancel()
		if err != nil {
			// The room times out on the provider side eventually.
			log.Warnf("[StreamLifecycle] Room cleanup failed for stream %s: %v", stream.UUID, err)
		}
	}
	return nil
}

func (s *Service) applyStatus(stream *models.Stream, target string, updates map[string]interface{}) (bool, error) {
	changed, err := s.repo.UpdateStreamIf(stream.ID, stream.Status, updates)
	if err != nil {
		return false, err
	}
	if !changed {
		current, err := s.repo.StreamByUUID(stream.UUID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrNotFound
			}
			return false, err
		}
		if current.Status == target {
			*stream = *current
			return false, nil
		}
		return false, ErrConcurrentModification
	}
	stream.Status = target
	return true, nil
}

// CanView decides viewer visibility for a stream. In rehearsal only team
// members (any role) may watch; in every other state team members always
// watch and everyone else falls through to the entitlement rules on the
// owning experience.
func (s *Service) CanView(ctx context.Context, userID uint, stream *models.Stream) (bool, error) {
	exp, space, err := s.owningExperience(stream)
	if err != nil {
		return false, err
	}

	membership, err := s.resolver.Membership(ctx, userID, space.TeamID)
	if err != nil {
		return false, err
	}

	if stream.Status == models.StreamStatusRehearsal {
		return membership != nil, nil
	}
	if membership != nil {
		return true, nil
	}

	decision, err := s.resolver.Resolve(ctx, userID, entitlements.ExperienceResource(exp, space))
	if err != nil {
		return false, err
	}
	return decision.CanView, nil
}

// CanBroadcast requires team membership with a role set that is not exactly
// {buyer}.
func (s *Service) CanBroadcast(ctx context.Context, userID uint, stream *models.Stream) (bool, error) {
	_, space, err := s.owningExperience(stream)
	if err != nil {
		return false, err
	}
	membership, err := s.resolver.Membership(ctx, userID, space.TeamID)
	if err != nil {
		return false, err
	}
	return membership != nil && !membership.IsBuyerOnly(), nil
}

// AccessToken issues a provider token for the stream, with publish rights
// when the principal may broadcast. A provider failure while the caller
// asked to publish degrades to denial rather than an error.
func (s *Service) AccessToken(ctx context.Context, userID uint, stream *models.Stream) (token string, canPublish bool, err error) {
	canView, err := s.CanView(ctx, userID, stream)
	if err != nil {
		return "", false, err
	}
	if !canView {
		return "", false, nil
	}

	canPublish, err = s.CanBroadcast(ctx, userID, stream)
	if err != nil {
		return "", false, err
	}

	userRef := fmt.Sprintf("user-%d", userID)
	callCtx, cancel := providers.WithTimeout(ctx)
	defer cancel()
	token, err = s.video.GenerateAccessToken(callCtx, stream.UUID, userRef, canPublish)
	if err != nil {
		if canPublish {
			// Soft failure: retry without publish rights before giving up.
			log.Warnf("[StreamLifecycle] Publish token failed for stream %s user %d: %v", stream.UUID, userID, err)
			retryCtx, retryCancel := providers.WithTimeout(ctx)
			defer retryCancel()
			token, err = s.video.GenerateAccessToken(retryCtx, stream.UUID, userRef, false)
			if err == nil {
				return token, false, nil
			}
		}
		return "", false, fmt.Errorf("generate access token: %w", err)
	}
	return token, canPublish, nil
}

// Participants queries the current room participant list.
func (s *Service) Participants(ctx context.Context, stream *models.Stream) ([]string, error) {
	callCtx, cancel := providers.WithTimeout(ctx)
	defer cancel()
	return s.video.ListParticipants(callCtx, stream.UUID)
}

// LiveStreams lists all streams currently in the live state.
func (s *Service) LiveStreams() ([]models.Stream, error) {
	return s.repo.LiveStreams()
}

func (s *Service) owningExperience(stream *models.Stream) (*models.Experience, *models.Space, error) {
	exp, space, err := s.repo.ExperienceWithSpace(stream.ExperienceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return exp, space, nil
}
