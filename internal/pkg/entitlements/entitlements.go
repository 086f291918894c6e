package entitlements

import (
	"time"

	"github.com/JonasWehrle/StagePass/app/models"
)

// Role is the effective role a principal holds on a resource.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleBuyer   Role = "buyer"
	RoleNone    Role = "none"
)

// Decision is the result of resolving a (principal, resource) pair.
// Denial is a normal decision, not an error.
type Decision struct {
	Role         Role `json:"role"`
	CanView      bool `json:"can_view"`
	CanManage    bool `json:"can_manage"`
	CanBroadcast bool `json:"can_broadcast"`
}

// Resource describes the target of an access check: a space or an experience,
// its owning team/space, and its price.
type Resource struct {
	Ref        models.PurchasableRef
	TeamID     uint
	SpaceID    uint
	PriceCents int64
}

// SpaceResource builds the resource view of a space.
func SpaceResource(s *models.Space) Resource {
	return Resource{Ref: s.Ref(), TeamID: s.TeamID, SpaceID: s.ID}
}

// ExperienceResource builds the resource view of an experience. The owning
// space supplies the team.
func ExperienceResource(e *models.Experience, owner *models.Space) Resource {
	return Resource{Ref: e.Ref(), TeamID: owner.TeamID, SpaceID: owner.ID, PriceCents: e.PriceCents}
}

// IsFree reports whether the resource is free content. Only experiences carry
// a price; a space is a storefront container and is never free-for-all, its
// access comes from membership or a space-level grant.
func (r Resource) IsFree() bool {
	return r.Ref.Kind == models.PurchasableExperience && r.PriceCents == 0
}

// Principal bundles everything known about the requesting user relative to
// the resource's team. A nil principal (or zero UserID) is anonymous.
type Principal struct {
	UserID      uint
	IsTeamOwner bool
	Membership  *models.Membership
	Grants      []models.AccessGrant
}

// Evaluate decides access for a principal on a resource. Precedence, first
// match wins: team manager, free content, active grant (exact target or
// space-level grant covering the experience). Grant expiry is re-checked
// against now on every call; a grant can lapse between evaluations without
// any write happening.
func Evaluate(p *Principal, res Resource, now time.Time) Decision {
	canBroadcast := p != nil && p.Membership != nil && !p.Membership.IsBuyerOnly()

	if p != nil && p.Membership != nil && p.Membership.IsManager() {
		role := RoleManager
		if p.IsTeamOwner {
			role = RoleOwner
		}
		return Decision{Role: role, CanView: true, CanManage: true, CanBroadcast: canBroadcast}
	}

	if res.IsFree() {
		return Decision{Role: RoleBuyer, CanView: true, CanBroadcast: canBroadcast}
	}

	if p != nil {
		for i := range p.Grants {
			g := &p.Grants[i]
			if !g.IsActiveAt(now) {
				continue
			}
			if g.Covers(res.Ref, res.SpaceID) {
				return Decision{Role: RoleBuyer, CanView: true, CanBroadcast: canBroadcast}
			}
		}
	}

	return Decision{Role: RoleNone, CanBroadcast: canBroadcast}
}
