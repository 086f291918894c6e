package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role names carried by a membership. Roles form a strict order so that
// "never downgrade" is a rank comparison instead of string matching.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleBuyer  = "buyer"
	RoleViewer = "viewer"
)

// Membership links a user to a team with a set of roles. At most one
// membership exists per (user, team) pair.
type Membership struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index:ux_memberships_user_team,unique,priority:1" json:"user_id"`
	TeamID    uint           `gorm:"not null;index:ux_memberships_user_team,unique,priority:2" json:"team_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Team      Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Roles     string         `gorm:"type:varchar(255);not null;default:''" json:"roles"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RoleRank orders known roles; higher outranks lower. Unknown roles rank
// below viewer so they can never block an upgrade.
func RoleRank(role string) int {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return 4
	case RoleEditor:
		return 3
	case RoleBuyer:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// RoleSet parses the stored comma-separated role list into normalized names.
func (m *Membership) RoleSet() []string {
	if strings.TrimSpace(m.Roles) == "" {
		return nil
	}
	parts := strings.Split(m.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		r := strings.ToLower(strings.TrimSpace(p))
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// SetRoleSet stores a role list back into the CSV column.
func (m *Membership) SetRoleSet(roles []string) {
	m.Roles = strings.Join(roles, ",")
}

// HasRole reports whether the membership carries the given role.
func (m *Membership) HasRole(role string) bool {
	want := strings.ToLower(strings.TrimSpace(role))
	for _, r := range m.RoleSet() {
		if r == want {
			return true
		}
	}
	return false
}

// HighestRoleRank returns the rank of the strongest role in the set.
func (m *Membership) HighestRoleRank() int {
	best := 0
	for _, r := range m.RoleSet() {
		if rank := RoleRank(r); rank > best {
			best = rank
		}
	}
	return best
}

// IsManager reports whether the membership allows managing team resources.
func (m *Membership) IsManager() bool {
	return m.HasRole(RoleAdmin) || m.HasRole(RoleEditor)
}

// IsBuyerOnly reports whether the role set is exactly {buyer}. A buyer-only
// membership can view but never broadcast.
func (m *Membership) IsBuyerOnly() bool {
	roles := m.RoleSet()
	return len(roles) == 1 && roles[0] == RoleBuyer
}

// AddRole appends a role if it is not already present.
func (m *Membership) AddRole(role string) {
	if m.HasRole(role) {
		return
	}
	roles := append(m.RoleSet(), strings.ToLower(strings.TrimSpace(role)))
	m.SetRoleSet(roles)
}

// FindMembership loads the membership for a (user, team) pair.
func FindMembership(db *gorm.DB, userID, teamID uint) (*Membership, error) {
	var m Membership
	err := db.Where("user_id = ? AND team_id = ?", userID, teamID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
