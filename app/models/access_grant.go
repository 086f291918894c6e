package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessGrant statuses.
const (
	GrantStatusActive    = "active"
	GrantStatusExpired   = "expired"
	GrantStatusCancelled = "cancelled"
	GrantStatusRefunded  = "refunded"
)

// AccessGrant is the entitlement record proving a user may access a space or
// experience. It references its purchasable target but does not own it.
type AccessGrant struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UUID            string          `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID          uint            `gorm:"not null;index:idx_grants_user_purchasable,priority:1" json:"user_id"`
	TeamID          uint            `gorm:"not null;index" json:"team_id"`
	PurchasableKind PurchasableKind `gorm:"type:varchar(16);not null;index:idx_grants_user_purchasable,priority:2" json:"purchasable_kind"`
	PurchasableID   uint            `gorm:"not null;index:idx_grants_user_purchasable,priority:3" json:"purchasable_id"`
	Status          string          `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	ExpiresAt       *time.Time      `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *AccessGrant) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == "" {
		g.UUID = uuid.New().String()
	}
	return nil
}

// Purchasable returns the typed reference of the grant target.
func (g *AccessGrant) Purchasable() PurchasableRef {
	return PurchasableRef{Kind: g.PurchasableKind, ID: g.PurchasableID}
}

// IsActiveAt reports whether the grant entitles access at the given instant.
// A grant with an expiry is no longer active at t == expires_at; expiry must
// be re-checked at every evaluation, never only at creation time.
func (g *AccessGrant) IsActiveAt(now time.Time) bool {
	if g.Status != GrantStatusActive {
		return false
	}
	if g.ExpiresAt == nil {
		return true
	}
	return now.Before(*g.ExpiresAt)
}

// Covers reports whether the grant target covers the given resource: either
// the exact purchasable, or a space-level grant covering any experience of
// that space.
func (g *AccessGrant) Covers(resource PurchasableRef, experienceSpaceID uint) bool {
	target := g.Purchasable()
	if target == resource {
		return true
	}
	if target.Kind == PurchasableSpace && resource.Kind == PurchasableExperience {
		return target.ID == experienceSpaceID
	}
	return false
}
