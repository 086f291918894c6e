package providers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// NoopVideoProvider is a stand-in video provider for local development and
// environments without external credentials. Rooms exist in name only.
type NoopVideoProvider struct{}

func (NoopVideoProvider) CreateRoom(ctx context.Context, streamUUID string) (RoomHandle, error) {
	log.Infof("[Providers] noop video: create room for stream %s", streamUUID)
	return RoomHandle{RoomID: "room-" + streamUUID}, nil
}

func (NoopVideoProvider) DeleteRoom(ctx context.Context, streamUUID string) error {
	log.Infof("[Providers] noop video: delete room for stream %s", streamUUID)
	return nil
}

func (NoopVideoProvider) ListParticipants(ctx context.Context, streamUUID string) ([]string, error) {
	return []string{}, nil
}

func (NoopVideoProvider) GenerateAccessToken(ctx context.Context, streamUUID, userRef string, canPublish bool) (string, error) {
	return fmt.Sprintf("dev-token-%s-%s-%t", streamUUID, userRef, canPublish), nil
}

// NoopChatProvider is the chat counterpart of NoopVideoProvider.
type NoopChatProvider struct{}

func (NoopChatProvider) CreateChannel(ctx context.Context, streamUUID, title, ownerRef string) (string, error) {
	log.Infof("[Providers] noop chat: create channel for stream %s", streamUUID)
	return "chan-" + uuid.New().String(), nil
}

func (NoopChatProvider) DeleteChannel(ctx context.Context, channelID string) error {
	return nil
}

func (NoopChatProvider) AddMember(ctx context.Context, channelID, userRef, role string) error {
	return nil
}

func (NoopChatProvider) RemoveMember(ctx context.Context, channelID, userRef string) error {
	return nil
}
