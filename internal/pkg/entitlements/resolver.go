package entitlements

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
)

// RoleCache caches membership role sets per (team, user). Reads go through
// the cache; invalidation is triggered explicitly by every mutation path
// that can change the answer — never implicitly.
type RoleCache interface {
	Get(teamID, userID uint) (roles string, ok bool)
	Set(teamID, userID uint, roles string)
	Invalidate(teamID, userID uint)
}

// Repository provides the DB reads the resolver needs.
type Repository interface {
	TeamOwnerID(teamID uint) (uint, error)
	Membership(userID, teamID uint) (*models.Membership, error)
	ActiveGrants(userID, teamID uint) ([]models.AccessGrant, error)
	SpaceOfExperience(experienceID uint) (*models.Space, error)
}

// cached role sentinel for "no membership", distinct from an empty role set.
const noMembership = "\x00none"

// Resolver answers access checks. It is stateless apart from the injected
// collaborators and safe for concurrent use.
type Resolver struct {
	repo  Repository
	roles RoleCache
}

// NewResolver creates a resolver from an injected repository and role cache.
// A nil cache disables caching.
func NewResolver(repo Repository, roles RoleCache) *Resolver {
	return &Resolver{repo: repo, roles: roles}
}

// NewResolverFromDB creates a resolver backed by GORM without a role cache.
func NewResolverFromDB(db *gorm.DB) *Resolver {
	return NewResolver(NewRepository(db), nil)
}

// Resolve decides access for a user id on a resource. userID 0 is anonymous.
func (r *Resolver) Resolve(ctx context.Context, userID uint, res Resource) (Decision, error) {
	_ = ctx
	if userID == 0 {
		return Evaluate(nil, res, time.Now()), nil
	}

	p, err := r.loadPrincipal(userID, res.TeamID)
	if err != nil {
		return Decision{Role: RoleNone}, err
	}
	return Evaluate(p, res, time.Now()), nil
}

// ResolveExperienceByID loads the experience's owning space and resolves
// against it.
func (r *Resolver) ResolveExperienceByID(ctx context.Context, userID uint, e *models.Experience) (Decision, error) {
	owner, err := r.repo.SpaceOfExperience(e.ID)
	if err != nil {
		return Decision{Role: RoleNone}, err
	}
	return r.Resolve(ctx, userID, ExperienceResource(e, owner))
}

// Membership returns the membership for a user on a team, going through the
// role cache, or nil when the user is not a member.
func (r *Resolver) Membership(ctx context.Context, userID, teamID uint) (*models.Membership, error) {
	_ = ctx
	if userID == 0 {
		return nil, nil
	}
	return r.lookupMembership(userID, teamID)
}

func (r *Resolver) loadPrincipal(userID, teamID uint) (*Principal, error) {
	p := &Principal{UserID: userID}

	membership, err := r.lookupMembership(userID, teamID)
	if err != nil {
		return nil, err
	}
	p.Membership = membership

	if membership != nil {
		ownerID, err := r.repo.TeamOwnerID(teamID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		p.IsTeamOwner = ownerID != 0 && ownerID == userID
	}

	grants, err := r.repo.ActiveGrants(userID, teamID)
	if err != nil {
		return nil, err
	}
	p.Grants = grants

	return p, nil
}

func (r *Resolver) lookupMembership(userID, teamID uint) (*models.Membership, error) {
	if r.roles != nil {
		if roles, ok := r.roles.Get(teamID, userID); ok {
			if roles == noMembership {
				return nil, nil
			}
			return &models.Membership{UserID: userID, TeamID: teamID, Roles: roles}, nil
		}
	}

	membership, err := r.repo.Membership(userID, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if r.roles != nil {
				r.roles.Set(teamID, userID, noMembership)
			}
			return nil, nil
		}
		return nil, err
	}

	if r.roles != nil {
		r.roles.Set(teamID, userID, membership.Roles)
	}
	return membership, nil
}
