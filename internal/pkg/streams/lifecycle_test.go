package streams

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/entitlements"
	"github.com/JonasWehrle/StagePass/internal/pkg/providers"
)

// memStreamRepo is an in-memory stream Repository.
type memStreamRepo struct {
	streams     map[uint]*models.Stream
	experiences map[uint]*models.Experience
	spaces      map[uint]*models.Space
}

func newMemStreamRepo() *memStreamRepo {
	return &memStreamRepo{
		streams:     make(map[uint]*models.Stream),
		experiences: make(map[uint]*models.Experience),
		spaces:      make(map[uint]*models.Space),
	}
}

func (r *memStreamRepo) StreamByUUID(uuid string) (*models.Stream, error) {
	for _, st := range r.streams {
		if st.UUID == uuid {
			cp := *st
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memStreamRepo) ExperienceWithSpace(experienceID uint) (*models.Experience, *models.Space, error) {
	e, ok := r.experiences[experienceID]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}
	s, ok := r.spaces[e.SpaceID]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}
	return e, s, nil
}

func (r *memStreamRepo) UpdateStreamIf(streamID uint, fromStatus string, updates map[string]interface{}) (bool, error) {
	st, ok := r.streams[streamID]
	if !ok || st.Status != fromStatus {
		return false, nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			st.Status = v.(string)
		case "started_at":
			st.StartedAt = v.(*time.Time)
		case "ended_at":
			st.EndedAt = v.(*time.Time)
		case "ended_reason":
			st.EndedReason = v.(string)
		}
	}
	return true, nil
}

func (r *memStreamRepo) SaveRoomIDs(streamID uint, roomID, chatChannelID string) error {
	st, ok := r.streams[streamID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if roomID != "" {
		st.RoomID = roomID
	}
	if chatChannelID != "" {
		st.ChatChannelID = chatChannelID
	}
	return nil
}

func (r *memStreamRepo) LiveStreams() ([]models.Stream, error) {
	var out []models.Stream
	for _, st := range r.streams {
		if st.Status == models.StreamStatusLive {
			out = append(out, *st)
		}
	}
	return out, nil
}

// fakeVideo records provider calls.
type fakeVideo struct {
	createCalls  int
	deleteCalls  int
	participants []string
	listErr      error
	tokenErr     error
	deleteErr    error
}

func (f *fakeVideo) CreateRoom(ctx context.Context, streamUUID string) (providers.RoomHandle, error) {
	f.createCalls++
	return providers.RoomHandle{RoomID: "room-" + streamUUID}, nil
}

func (f *fakeVideo) DeleteRoom(ctx context.Context, streamUUID string) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeVideo) ListParticipants(ctx context.Context, streamUUID string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.participants, nil
}

func (f *fakeVideo) GenerateAccessToken(ctx context.Context, streamUUID, userRef string, canPublish bool) (string, error) {
	if f.tokenErr != nil && canPublish {
		return "", f.tokenErr
	}
	if canPublish {
		return "publish-token", nil
	}
	return "view-token", nil
}

type fakeChat struct {
	createCalls int
}

func (f *fakeChat) CreateChannel(ctx context.Context, streamUUID, title, ownerRef string) (string, error) {
	f.createCalls++
	return "chan-" + streamUUID, nil
}

func (f *fakeChat) DeleteChannel(ctx context.Context, channelID string) error { return nil }
func (f *fakeChat) AddMember(ctx context.Context, channelID, userRef, role string) error {
	return nil
}
func (f *fakeChat) RemoveMember(ctx context.Context, channelID, userRef string) error { return nil }

// fakeResolverRepo backs the entitlement resolver in lifecycle tests.
type fakeResolverRepo struct {
	memberships map[uint]*models.Membership // by user id
	grants      map[uint][]models.AccessGrant
	space       *models.Space
}

func (f *fakeResolverRepo) TeamOwnerID(teamID uint) (uint, error) { return 0, nil }

func (f *fakeResolverRepo) Membership(userID, teamID uint) (*models.Membership, error) {
	if m, ok := f.memberships[userID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResolverRepo) ActiveGrants(userID, teamID uint) ([]models.AccessGrant, error) {
	return f.grants[userID], nil
}

func (f *fakeResolverRepo) SpaceOfExperience(experienceID uint) (*models.Space, error) {
	return f.space, nil
}

func newTestService(t *testing.T) (*Service, *memStreamRepo, *fakeVideo, *fakeChat, *fakeResolverRepo) {
	t.Helper()
	repo := newMemStreamRepo()
	repo.spaces[1] = &models.Space{ID: 1, TeamID: 1}
	repo.experiences[2] = &models.Experience{ID: 2, SpaceID: 1, Name: "Morning Show", PriceCents: 1000}
	repo.streams[10] = &models.Stream{ID: 10, UUID: "st-10", ExperienceID: 2, Status: models.StreamStatusScheduled}

	video := &fakeVideo{}
	chat := &fakeChat{}
	resolverRepo := &fakeResolverRepo{
		memberships: make(map[uint]*models.Membership),
		grants:      make(map[uint][]models.AccessGrant),
		space:       repo.spaces[1],
	}
	svc := NewService(repo, entitlements.NewResolver(resolverRepo, nil), video, chat)
	return svc, repo, video, chat, resolverRepo
}

func TestTransitionScheduledToLive(t *testing.T) {
	svc, repo, video, chat, _ := newTestService(t)
	st := repo.streams[10]

	require.NoError(t, svc.Transition(context.Background(), st, models.StreamStatusLive, ""))
	assert.Equal(t, models.StreamStatusLive, st.Status)
	assert.NotNil(t, st.StartedAt)
	assert.Equal(t, "room-st-10", st.RoomID)
	assert.Equal(t, "chan-st-10", st.ChatChannelID)
	assert.Equal(t, 1, video.createCalls)
	assert.Equal(t, 1, chat.createCalls)
}

func TestTransitionLiveIdempotentRoomCreation(t *testing.T) {
	svc, repo, video, chat, _ := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusRehearsal
	st.RoomID = "existing-room"
	st.ChatChannelID = "existing-chan"

	require.NoError(t, svc.Transition(context.Background(), st, models.StreamStatusLive, ""))
	assert.Equal(t, 0, video.createCalls, "existing room id must skip creation")
	assert.Equal(t, 0, chat.createCalls)
}

func TestTransitionEndedIsTerminal(t *testing.T) {
	svc, repo, _, _, _ := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusEnded

	err := svc.Transition(context.Background(), st, models.StreamStatusLive, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = svc.Transition(context.Background(), st, models.StreamStatusRehearsal, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionToSameStateIsNoop(t *testing.T) {
	svc, repo, _, _, _ := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusLive

	require.NoError(t, svc.Transition(context.Background(), st, models.StreamStatusLive, ""))
}

func TestEndDeletesRoomOnce(t *testing.T) {
	svc, repo, video, _, _ := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusLive
	st.RoomID = "room-st-10"

	require.NoError(t, svc.Transition(context.Background(), st, models.StreamStatusEnded, ReasonMaxDuration))
	assert.Equal(t, 1, video.deleteCalls)
	assert.Equal(t, ReasonMaxDuration, st.EndedReason)
	assert.NotNil(t, st.EndedAt)

	// A second sweep working from a stale copy loses the guarded update and
	// must not delete the room again.
	stale := &models.Stream{ID: 10, UUID: "st-10", ExperienceID: 2, Status: models.StreamStatusLive, RoomID: "room-st-10"}
	require.NoError(t, svc.Transition(context.Background(), stale, models.StreamStatusEnded, ReasonMaxDuration))
	assert.Equal(t, 1, video.deleteCalls)
}

func TestEndProceedsWhenRoomCleanupFails(t *testing.T) {
	svc, repo, video, _, _ := newTestService(t)
	video.deleteErr = errors.New("provider down")
	st := repo.streams[10]
	st.Status = models.StreamStatusLive
	st.RoomID = "room-st-10"

	require.NoError(t, svc.Transition(context.Background(), st, models.StreamStatusEnded, ""))
	assert.Equal(t, models.StreamStatusEnded, st.Status)
	assert.Equal(t, models.StreamStatusEnded, repo.streams[10].Status)
}

func TestCanViewRehearsalMembersOnly(t *testing.T) {
	svc, repo, _, _, resolverRepo := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusRehearsal

	resolverRepo.memberships[1] = &models.Membership{UserID: 1, TeamID: 1, Roles: "buyer"}
	// User 2 holds an active grant for the experience but is not a member.
	resolverRepo.grants[2] = []models.AccessGrant{
		{UserID: 2, TeamID: 1, PurchasableKind: models.PurchasableExperience, PurchasableID: 2, Status: models.GrantStatusActive},
	}

	ok, err := svc.CanView(context.Background(), 1, st)
	require.NoError(t, err)
	assert.True(t, ok, "team member views rehearsal")

	ok, err = svc.CanView(context.Background(), 2, st)
	require.NoError(t, err)
	assert.False(t, ok, "grant holder must not view rehearsal")
}

func TestCanViewLiveFallsBackToEntitlements(t *testing.T) {
	svc, repo, _, _, resolverRepo := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusLive

	resolverRepo.grants[2] = []models.AccessGrant{
		{UserID: 2, TeamID: 1, PurchasableKind: models.PurchasableSpace, PurchasableID: 1, Status: models.GrantStatusActive},
	}

	ok, err := svc.CanView(context.Background(), 2, st)
	require.NoError(t, err)
	assert.True(t, ok, "space grant covers the stream's experience")

	ok, err = svc.CanView(context.Background(), 3, st)
	require.NoError(t, err)
	assert.False(t, ok, "stranger denied")
}

func TestCanBroadcast(t *testing.T) {
	svc, repo, _, _, resolverRepo := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusLive

	resolverRepo.memberships[1] = &models.Membership{UserID: 1, TeamID: 1, Roles: "buyer"}
	resolverRepo.memberships[2] = &models.Membership{UserID: 2, TeamID: 1, Roles: "editor"}

	ok, err := svc.CanBroadcast(context.Background(), 1, st)
	require.NoError(t, err)
	assert.False(t, ok, "buyer-only membership never broadcasts")

	ok, err = svc.CanBroadcast(context.Background(), 2, st)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanBroadcast(context.Background(), 3, st)
	require.NoError(t, err)
	assert.False(t, ok, "non-member never broadcasts")
}

func TestAccessTokenPublishFailureDegradesToViewer(t *testing.T) {
	svc, repo, video, _, resolverRepo := newTestService(t)
	video.tokenErr = errors.New("provider rejected publish grant")
	st := repo.streams[10]
	st.Status = models.StreamStatusLive

	resolverRepo.memberships[2] = &models.Membership{UserID: 2, TeamID: 1, Roles: "editor"}

	token, canPublish, err := svc.AccessToken(context.Background(), 2, st)
	require.NoError(t, err)
	assert.False(t, canPublish, "publish failure must degrade, not error")
	assert.Equal(t, "view-token", token)
}

func TestAccessTokenDeniedWithoutView(t *testing.T) {
	svc, repo, _, _, _ := newTestService(t)
	st := repo.streams[10]
	st.Status = models.StreamStatusLive

	token, canPublish, err := svc.AccessToken(context.Background(), 3, st)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.False(t, canPublish)
}
