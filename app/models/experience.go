package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Experience kinds offered by a space.
const (
	ExperienceLiveStream     = "live_stream"
	ExperienceCourse         = "course"
	ExperienceCommunity      = "community"
	ExperienceConsultation   = "consultation"
	ExperienceDigitalProduct = "digital_product"
)

// Experience is a sellable content unit inside a space.
type Experience struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	SpaceID    uint           `gorm:"not null;index" json:"space_id"`
	Space      Space          `gorm:"foreignKey:SpaceID" json:"space,omitempty"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Kind       string         `gorm:"type:varchar(32);not null" json:"kind" validate:"oneof=live_stream course community consultation digital_product"`
	PriceCents int64          `gorm:"not null;default:0" json:"price_cents" validate:"min=0"`
	Streams    []Stream       `gorm:"foreignKey:ExperienceID;constraint:OnDelete:CASCADE" json:"streams,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (e *Experience) Validate() error {
	v := validator.New()

	return v.Struct(e)
}

func (e *Experience) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == "" {
		e.UUID = uuid.New().String()
	}
	return nil
}

// IsFree reports whether the experience is free content.
func (e *Experience) IsFree() bool {
	return e.PriceCents == 0
}

// Ref returns the purchasable reference for this experience.
func (e *Experience) Ref() PurchasableRef {
	return ExperienceRef(e.ID)
}

// FindExperienceByUUID loads an experience by its public identifier.
func FindExperienceByUUID(db *gorm.DB, id string) (*Experience, error) {
	var e Experience
	if err := db.Where("uuid = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}
