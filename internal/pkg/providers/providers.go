package providers

import (
	"context"
	"time"
)

// CallTimeout bounds every outbound provider call. The calls are
// fire-and-forget administrative operations; a timeout is treated as a soft
// failure by read paths and as log-and-continue by cleanup paths.
const CallTimeout = 8 * time.Second

// RoomHandle identifies a created video room on the provider side.
type RoomHandle struct {
	RoomID string
}

// VideoRoomProvider is the injected interface to the external video service.
// ListParticipants returns an empty list, not an error, when the room does
// not exist.
type VideoRoomProvider interface {
	CreateRoom(ctx context.Context, streamUUID string) (RoomHandle, error)
	DeleteRoom(ctx context.Context, streamUUID string) error
	ListParticipants(ctx context.Context, streamUUID string) ([]string, error)
	GenerateAccessToken(ctx context.Context, streamUUID, userRef string, canPublish bool) (string, error)
}

// ChatRoomProvider is the injected interface to the external chat service.
type ChatRoomProvider interface {
	CreateChannel(ctx context.Context, streamUUID, title, ownerRef string) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	AddMember(ctx context.Context, channelID, userRef, role string) error
	RemoveMember(ctx context.Context, channelID, userRef string) error
}

// WithTimeout derives the bounded context used for a single provider call.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, CallTimeout)
}
