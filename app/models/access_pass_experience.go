package models

import "time"

// AccessPassExperience links a pass to an experience it bundles. Included
// controls whether the experience is currently part of the pass; Position
// orders the bundle for display.
type AccessPassExperience struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccessPassID uint       `gorm:"not null;index:ux_pass_experience,unique,priority:1" json:"access_pass_id"`
	ExperienceID uint       `gorm:"not null;index:ux_pass_experience,unique,priority:2" json:"experience_id"`
	Experience   Experience `gorm:"foreignKey:ExperienceID" json:"experience,omitempty"`
	Included     bool       `gorm:"default:true" json:"included"`
	Position     int        `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
