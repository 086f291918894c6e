package models

import (
	"time"

	"gorm.io/gorm"
)

// WaitlistEntry statuses.
const (
	WaitlistStatusPending  = "pending"
	WaitlistStatusApproved = "approved"
	WaitlistStatusRejected = "rejected"
)

// WaitlistEntry queues a prospective buyer on a pass with a waitlist enabled.
// UserID is optional: entries may be created from an email before signup.
type WaitlistEntry struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccessPassID uint       `gorm:"not null;index" json:"access_pass_id"`
	AccessPass   AccessPass `gorm:"foreignKey:AccessPassID" json:"access_pass,omitempty"`
	UserID       *uint      `gorm:"index" json:"user_id,omitempty"`
	Email        string     `gorm:"type:varchar(200);not null" json:"email" validate:"required,email"`
	Status       string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	DecidedAt    *time.Time `gorm:"type:timestamp;default:null" json:"decided_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPending reports whether the entry still awaits a decision.
func (w *WaitlistEntry) IsPending() bool {
	return w.Status == WaitlistStatusPending
}

// Decide moves a pending entry to approved or rejected.
func (w *WaitlistEntry) Decide(db *gorm.DB, status string) error {
	now := time.Now()
	return db.Model(w).Updates(map[string]interface{}{
		"status":     status,
		"decided_at": &now,
	}).Error
}
