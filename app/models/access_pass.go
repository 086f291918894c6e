package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// AccessPass pricing kinds.
const (
	PassPricingFree    = "free"
	PassPricingOneTime = "one_time"
	PassPricingMonthly = "monthly"
	PassPricingYearly  = "yearly"
)

// AccessPass is a priced product bundling one or more experiences of a space.
type AccessPass struct {
	ID              uint                   `gorm:"primaryKey" json:"id"`
	SpaceID         uint                   `gorm:"not null;index" json:"space_id"`
	Space           Space                  `gorm:"foreignKey:SpaceID" json:"space,omitempty"`
	Name            string                 `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Pricing         string                 `gorm:"type:varchar(16);not null;default:'free'" json:"pricing" validate:"oneof=free one_time monthly yearly"`
	PriceCents      int64                  `gorm:"not null;default:0" json:"price_cents" validate:"min=0"`
	WaitlistEnabled bool                   `gorm:"default:false" json:"waitlist_enabled"`
	Experiences     []AccessPassExperience `gorm:"foreignKey:AccessPassID;constraint:OnDelete:CASCADE" json:"experiences,omitempty"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt         `gorm:"index" json:"-"`
}

func (p *AccessPass) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsRecurring reports whether the pass renews on a billing interval.
func (p *AccessPass) IsRecurring() bool {
	return p.Pricing == PassPricingMonthly || p.Pricing == PassPricingYearly
}

// GrantDuration returns how long a grant issued from this pass stays valid,
// or zero for non-expiring passes (free, one_time).
func (p *AccessPass) GrantDuration() time.Duration {
	switch p.Pricing {
	case PassPricingMonthly:
		return 31 * 24 * time.Hour
	case PassPricingYearly:
		return 366 * 24 * time.Hour
	default:
		return 0
	}
}
