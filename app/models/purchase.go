package models

import "time"

// Purchase statuses.
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
	PurchaseStatusRefunded  = "refunded"
)

// Purchase is the financial record of a transaction. It references the grant
// it produced but is not itself an entitlement; access is always decided
// against the grant.
type Purchase struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"not null;index" json:"user_id"`
	TeamID              uint            `gorm:"not null;index" json:"team_id"`
	AccessGrantID       *uint           `gorm:"index" json:"access_grant_id,omitempty"`
	PurchasableKind     PurchasableKind `gorm:"type:varchar(16);not null" json:"purchasable_kind"`
	PurchasableID       uint            `gorm:"not null" json:"purchasable_id"`
	AmountCents         int64           `gorm:"not null;default:0" json:"amount_cents"`
	Currency            string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Provider            string          `gorm:"type:varchar(20);not null;index:ux_purchases_provider_ref,unique,priority:1" json:"provider"`
	ProviderPaymentID   string          `gorm:"type:varchar(191);not null;index:ux_purchases_provider_ref,unique,priority:2" json:"provider_payment_id"`
	Status              string          `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CompletedAt         *time.Time      `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Purchasable returns the typed reference of the purchased target.
func (p *Purchase) Purchasable() PurchasableRef {
	return PurchasableRef{Kind: p.PurchasableKind, ID: p.PurchasableID}
}
