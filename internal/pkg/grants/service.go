package grants

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/entitlements"
)

// Policy configures ledger behavior that the source system left ambiguous.
type Policy struct {
	// AllowDuplicateGrants permits multiple active grants for the same
	// (user, purchasable) pair, e.g. stacking time-limited passes. The
	// observed default is to allow them.
	AllowDuplicateGrants bool
}

// DefaultPolicy returns the observed default behavior.
func DefaultPolicy() Policy {
	return Policy{AllowDuplicateGrants: true}
}

// Service is the access-grant ledger. It owns grant lifecycle transitions
// and keeps membership role state synchronized inside the same transaction.
type Service struct {
	repo   Repository
	roles  entitlements.RoleCache
	policy Policy
}

// NewService creates a ledger from an injected repository and role cache.
// A nil role cache disables invalidation effects.
func NewService(repo Repository, roles entitlements.RoleCache, policy Policy) *Service {
	return &Service{repo: repo, roles: roles, policy: policy}
}

// NewServiceFromDB creates a ledger from a GORM DB handle with defaults.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), nil, DefaultPolicy())
}

// GrantAccess records a new active grant for a user on a purchasable and
// synchronizes the team membership. When the policy disallows duplicates and
// an active grant for the pair already exists, it returns the existing grant
// with ErrDuplicateActiveGrant. Grant creation and membership sync share one
// transaction: neither outcome can exist without the other.
func (s *Service) GrantAccess(ctx context.Context, userID uint, ref models.PurchasableRef, teamID uint, expiresAt *time.Time) (*models.AccessGrant, error) {
	_ = ctx
	if userID == 0 || teamID == 0 || !ref.Valid() {
		return nil, errors.New("user_id, team_id and a valid purchasable are required")
	}

	var (
		grant   *models.AccessGrant
		effects []Effect
	)
	err := s.repo.Transaction(func(tx Repository) error {
		if !s.policy.AllowDuplicateGrants {
			existing, err := tx.ActiveGrantForUpdate(userID, ref)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if existing != nil && existing.IsActiveAt(time.Now()) {
				grant = existing
				return ErrDuplicateActiveGrant
			}
		}

		g := &models.AccessGrant{
			UserID:          userID,
			TeamID:          teamID,
			PurchasableKind: ref.Kind,
			PurchasableID:   ref.ID,
			Status:          models.GrantStatusActive,
			ExpiresAt:       expiresAt,
		}
		if err := tx.CreateGrant(g); err != nil {
			return err
		}
		grant = g

		fx, err := reconcileMembership(tx, g)
		if err != nil {
			return err
		}
		effects = append(effects, fx...)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateActiveGrant) {
			return grant, err
		}
		return nil, err
	}

	s.applyEffects(effects)
	return grant, nil
}

// ReconcileMembership re-runs the membership sync for an existing grant in
// its own transaction.
func (s *Service) ReconcileMembership(ctx context.Context, grant *models.AccessGrant) error {
	_ = ctx
	if grant == nil {
		return errors.New("grant is required")
	}

	var effects []Effect
	err := s.repo.Transaction(func(tx Repository) error {
		fx, err := reconcileMembership(tx, grant)
		if err != nil {
			return err
		}
		effects = fx
		return nil
	})
	if err != nil {
		return err
	}
	s.applyEffects(effects)
	return nil
}

// reconcileMembership ensures an active grant's user holds at least the
// buyer role on the team. It never downgrades a stronger role set, and it
// deliberately leaves the membership untouched when the grant is inactive;
// revoking buyer access on expiry is an unresolved policy question.
func reconcileMembership(tx Repository, grant *models.AccessGrant) ([]Effect, error) {
	if !grant.IsActiveAt(time.Now()) {
		return nil, nil
	}

	membership, err := tx.MembershipForUpdate(grant.UserID, grant.TeamID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		m := &models.Membership{UserID: grant.UserID, TeamID: grant.TeamID, Roles: models.RoleBuyer}
		if err := tx.CreateMembership(m); err != nil {
			return nil, err
		}
		return []Effect{
			membershipSynced(grant.TeamID, grant.UserID),
			invalidateRoles(grant.TeamID, grant.UserID),
		}, nil
	}

	if membership.HighestRoleRank() >= models.RoleRank(models.RoleBuyer) {
		return nil, nil
	}

	membership.AddRole(models.RoleBuyer)
	if err := tx.SaveMembership(membership); err != nil {
		return nil, err
	}
	return []Effect{
		membershipSynced(grant.TeamID, grant.UserID),
		invalidateRoles(grant.TeamID, grant.UserID),
	}, nil
}

// GrantByUUID loads a grant by its public identifier.
func (s *Service) GrantByUUID(ctx context.Context, uuid string) (*models.AccessGrant, error) {
	_ = ctx
	g, err := s.repo.GrantByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// ExpireSweep transitions overdue active grants to expired and returns how
// many rows changed. Each transition is a conditional update keyed on the
// current status, so overlapping or repeated sweeps never double-apply.
func (s *Service) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	candidates, err := s.repo.ExpiredActiveGrants(now, 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	var effects []Effect
	for i := range candidates {
		g := &candidates[i]
		changed, err := s.repo.UpdateGrantStatusIf(g.ID, models.GrantStatusActive, models.GrantStatusExpired)
		if err != nil {
			log.Errorf("[GrantLedger] Expire sweep failed for grant %s: %v", g.UUID, err)
			continue
		}
		if changed {
			expired++
			effects = append(effects, invalidateRoles(g.TeamID, g.UserID))
		}
	}

	s.applyEffects(effects)
	return expired, nil
}

// Cancel transitions an active grant to cancelled. Cancelling an already
// cancelled grant is a no-op; any other status mismatch surfaces as
// ErrConcurrentModification.
func (s *Service) Cancel(ctx context.Context, grant *models.AccessGrant) error {
	return s.transition(ctx, grant, models.GrantStatusCancelled)
}

// Refund transitions an active grant to refunded, same semantics as Cancel.
func (s *Service) Refund(ctx context.Context, grant *models.AccessGrant) error {
	return s.transition(ctx, grant, models.GrantStatusRefunded)
}

func (s *Service) transition(ctx context.Context, grant *models.AccessGrant, target string) error {
	_ = ctx
	if grant == nil {
		return errors.New("grant is required")
	}
	if grant.Status == target {
		return nil
	}

	changed, err := s.repo.UpdateGrantStatusIf(grant.ID, models.GrantStatusActive, target)
	if err != nil {
		return err
	}
	if !changed {
		// Someone else moved the grant first; re-read to distinguish an
		// idempotent repeat from a genuine conflict.
		current, err := s.repo.GrantByUUID(grant.UUID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if current.Status == target {
			grant.Status = target
			return nil
		}
		return ErrConcurrentModification
	}

	grant.Status = target
	// Membership is left as-is on deactivation (see reconcileMembership),
	// but the cached role set may include data derived from this grant.
	s.applyEffects([]Effect{invalidateRoles(grant.TeamID, grant.UserID)})
	return nil
}

func (s *Service) applyEffects(effects []Effect) {
	for _, e := range effects {
		switch e.Kind {
		case EffectInvalidateRoles:
			if s.roles != nil {
				s.roles.Invalidate(e.TeamID, e.UserID)
			}
		case EffectMembershipSynced:
			log.Debugf("[GrantLedger] Membership synced for user %d on team %d", e.UserID, e.TeamID)
		}
	}
}
