package grants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
)

// memRepo is an in-memory Repository. Transaction runs against a copy of the
// state and commits it only on success, mirroring DB rollback behavior.
type memRepo struct {
	grants      []models.AccessGrant
	memberships []models.Membership
	nextID      uint

	failCreateMembership bool
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1}
}

func (r *memRepo) clone() *memRepo {
	c := &memRepo{nextID: r.nextID, failCreateMembership: r.failCreateMembership}
	c.grants = append([]models.AccessGrant(nil), r.grants...)
	c.memberships = append([]models.Membership(nil), r.memberships...)
	return c
}

func (r *memRepo) Transaction(fn func(tx Repository) error) error {
	c := r.clone()
	if err := fn(c); err != nil {
		return err
	}
	*r = *c
	return nil
}

func (r *memRepo) GrantByUUID(id string) (*models.AccessGrant, error) {
	for i := range r.grants {
		if r.grants[i].UUID == id {
			g := r.grants[i]
			return &g, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) ActiveGrantForUpdate(userID uint, ref models.PurchasableRef) (*models.AccessGrant, error) {
	for i := range r.grants {
		g := r.grants[i]
		if g.UserID == userID && g.Purchasable() == ref && g.Status == models.GrantStatusActive {
			return &g, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) CreateGrant(g *models.AccessGrant) error {
	g.ID = r.nextID
	r.nextID++
	if g.UUID == "" {
		g.UUID = uuid.New().String()
	}
	r.grants = append(r.grants, *g)
	return nil
}

func (r *memRepo) UpdateGrantStatusIf(grantID uint, from, to string) (bool, error) {
	for i := range r.grants {
		if r.grants[i].ID == grantID && r.grants[i].Status == from {
			r.grants[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ExpiredActiveGrants(now time.Time, limit int) ([]models.AccessGrant, error) {
	var out []models.AccessGrant
	for _, g := range r.grants {
		if g.Status == models.GrantStatusActive && g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memRepo) MembershipForUpdate(userID, teamID uint) (*models.Membership, error) {
	for i := range r.memberships {
		if r.memberships[i].UserID == userID && r.memberships[i].TeamID == teamID {
			m := r.memberships[i]
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) CreateMembership(m *models.Membership) error {
	if r.failCreateMembership {
		return errors.New("membership insert failed")
	}
	m.ID = r.nextID
	r.nextID++
	r.memberships = append(r.memberships, *m)
	return nil
}

func (r *memRepo) SaveMembership(m *models.Membership) error {
	for i := range r.memberships {
		if r.memberships[i].ID == m.ID {
			r.memberships[i] = *m
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type recordingRoleCache struct {
	invalidated [][2]uint
}

func (c *recordingRoleCache) Get(teamID, userID uint) (string, bool) { return "", false }
func (c *recordingRoleCache) Set(teamID, userID uint, roles string)  {}
func (c *recordingRoleCache) Invalidate(teamID, userID uint) {
	c.invalidated = append(c.invalidated, [2]uint{teamID, userID})
}

func TestGrantAccessCreatesGrantAndBuyerMembership(t *testing.T) {
	repo := newMemRepo()
	roles := &recordingRoleCache{}
	svc := NewService(repo, roles, DefaultPolicy())

	g, err := svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, models.GrantStatusActive, g.Status)

	m, err := repo.MembershipForUpdate(5, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, m.Roles)

	require.Len(t, roles.invalidated, 1)
	assert.Equal(t, [2]uint{1, 5}, roles.invalidated[0])
}

func TestGrantAccessDuplicatesAllowedByDefault(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, DefaultPolicy())

	_, err := svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
	require.NoError(t, err)
	_, err = svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
	require.NoError(t, err)

	assert.Len(t, repo.grants, 2)
}

func TestGrantAccessDuplicatePolicyRejects(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, Policy{AllowDuplicateGrants: false})

	first, err := svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
	require.NoError(t, err)

	second, err := svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
	assert.ErrorIs(t, err, ErrDuplicateActiveGrant)
	require.NotNil(t, second)
	assert.Equal(t, first.UUID, second.UUID, "existing grant should be returned")
	assert.Len(t, repo.grants, 1)
}

func TestGrantAccessValidation(t *testing.T) {
	svc := NewService(newMemRepo(), nil, DefaultPolicy())

	_, err := svc.GrantAccess(context.Background(), 0, models.SpaceRef(7), 1, nil)
	assert.Error(t, err)
	_, err = svc.GrantAccess(context.Background(), 5, models.PurchasableRef{}, 1, nil)
	assert.Error(t, err)
}

func TestReconcileMembershipNeverDowngrades(t *testing.T) {
	tests := []struct {
		name  string
		roles string
		want  string
	}{
		{name: "empty role set upgraded", roles: "", want: "buyer"},
		{name: "viewer gains buyer", roles: "viewer", want: "viewer,buyer"},
		{name: "buyer unchanged", roles: "buyer", want: "buyer"},
		{name: "editor unchanged", roles: "editor", want: "editor"},
		{name: "admin unchanged", roles: "admin", want: "admin"},
	}

	for _, tt := range tests {
		repo := newMemRepo()
		repo.memberships = append(repo.memberships, models.Membership{ID: 99, UserID: 5, TeamID: 1, Roles: tt.roles})
		svc := NewService(repo, nil, DefaultPolicy())

		_, err := svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
		require.NoError(t, err, tt.name)

		m, err := repo.MembershipForUpdate(5, 1)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, m.Roles, tt.name)
	}
}

func TestGrantAccessRollsBackOnMembershipFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failCreateMembership = true
	svc := NewService(repo, nil, DefaultPolicy())

	_, err := svc.GrantAccess(context.Background(), 5, models.SpaceRef(7), 1, nil)
	require.Error(t, err)
	assert.Empty(t, repo.grants, "grant must not exist without its membership side effect")
	assert.Empty(t, repo.memberships)
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	repo := newMemRepo()
	repo.grants = []models.AccessGrant{
		{ID: 1, UUID: "g1", UserID: 5, TeamID: 1, Status: models.GrantStatusActive, ExpiresAt: &past},
		{ID: 2, UUID: "g2", UserID: 6, TeamID: 1, Status: models.GrantStatusActive, ExpiresAt: &future},
		{ID: 3, UUID: "g3", UserID: 7, TeamID: 1, Status: models.GrantStatusActive},
	}
	svc := NewService(repo, nil, DefaultPolicy())

	n, err := svc.ExpireSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.GrantStatusExpired, repo.grants[0].Status)
	assert.Equal(t, models.GrantStatusActive, repo.grants[1].Status)
	assert.Equal(t, models.GrantStatusActive, repo.grants[2].Status)

	// Second run right after finds nothing to do.
	n, err = svc.ExpireSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExpireSweepBoundary(t *testing.T) {
	now := time.Now()
	repo := newMemRepo()
	repo.grants = []models.AccessGrant{
		{ID: 1, UUID: "g1", UserID: 5, TeamID: 1, Status: models.GrantStatusActive, ExpiresAt: &now},
	}
	svc := NewService(repo, nil, DefaultPolicy())

	// A grant is expired at the instant equal to expires_at.
	n, err := svc.ExpireSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCancelAndRefund(t *testing.T) {
	repo := newMemRepo()
	repo.grants = []models.AccessGrant{
		{ID: 1, UUID: "g1", UserID: 5, TeamID: 1, Status: models.GrantStatusActive},
	}
	svc := NewService(repo, nil, DefaultPolicy())

	g := repo.grants[0]
	require.NoError(t, svc.Cancel(context.Background(), &g))
	assert.Equal(t, models.GrantStatusCancelled, g.Status)
	assert.Equal(t, models.GrantStatusCancelled, repo.grants[0].Status)

	// Cancelling again is a no-op.
	require.NoError(t, svc.Cancel(context.Background(), &g))

	// Refunding a cancelled grant is a conflict, not silent success.
	err := svc.Refund(context.Background(), &g)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestRefundActiveGrant(t *testing.T) {
	repo := newMemRepo()
	repo.grants = []models.AccessGrant{
		{ID: 1, UUID: "g1", UserID: 5, TeamID: 1, Status: models.GrantStatusActive},
	}
	svc := NewService(repo, nil, DefaultPolicy())

	g := repo.grants[0]
	require.NoError(t, svc.Refund(context.Background(), &g))
	assert.Equal(t, models.GrantStatusRefunded, repo.grants[0].Status)
}
