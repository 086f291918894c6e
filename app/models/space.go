package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Space is a creator's storefront. Exactly one space exists per team in the
// default configuration, enforced by the unique index on TeamID.
type Space struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	TeamID       uint           `gorm:"not null;uniqueIndex" json:"team_id"`
	Team         Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Name         string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Description  string         `gorm:"type:text" json:"description"`
	Published    bool           `gorm:"default:false" json:"published"`
	Experiences  []Experience   `gorm:"foreignKey:SpaceID;constraint:OnDelete:CASCADE" json:"experiences,omitempty"`
	AccessPasses []AccessPass   `gorm:"foreignKey:SpaceID;constraint:OnDelete:CASCADE" json:"access_passes,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Space) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

func (s *Space) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.New().String()
	}
	return nil
}

// Ref returns the purchasable reference for this space.
func (s *Space) Ref() PurchasableRef {
	return SpaceRef(s.ID)
}

// FindSpaceByUUID loads a space by its public identifier.
func FindSpaceByUUID(db *gorm.DB, id string) (*Space, error) {
	var s Space
	if err := db.Where("uuid = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
