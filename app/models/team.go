package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Team is the tenant root. Every space, membership and grant hangs off a team.
type Team struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Slug        string         `gorm:"type:varchar(100);uniqueIndex" json:"slug" validate:"required,min=2,max=100"`
	OwnerUserID uint           `gorm:"not null;index" json:"owner_user_id"`
	Memberships []Membership   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Spaces      []Space        `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"spaces,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Team) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
