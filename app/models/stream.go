package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stream statuses. Ended is terminal.
const (
	StreamStatusScheduled = "scheduled"
	StreamStatusRehearsal = "rehearsal"
	StreamStatusLive      = "live"
	StreamStatusEnded     = "ended"
)

// Stream is a single broadcast belonging to an experience.
type Stream struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UUID          string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	ExperienceID  uint           `gorm:"not null;index" json:"experience_id"`
	Experience    Experience     `gorm:"foreignKey:ExperienceID" json:"experience,omitempty"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Status        string         `gorm:"type:varchar(16);not null;default:'scheduled';index" json:"status"`
	ScheduledAt   *time.Time     `gorm:"type:timestamp;default:null" json:"scheduled_at,omitempty"`
	StartedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"started_at,omitempty"`
	EndedAt       *time.Time     `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	EndedReason   string         `gorm:"type:varchar(100)" json:"ended_reason,omitempty"`
	RoomID        string         `gorm:"type:varchar(191)" json:"room_id,omitempty"`
	ChatChannelID string         `gorm:"type:varchar(191)" json:"chat_channel_id,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Stream) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.New().String()
	}
	return nil
}

// IsLive reports whether the stream is currently broadcasting.
func (s *Stream) IsLive() bool {
	return s.Status == StreamStatusLive
}

// IsEnded reports whether the stream reached its terminal state.
func (s *Stream) IsEnded() bool {
	return s.Status == StreamStatusEnded
}

// CanTransitionTo reports whether the target status is reachable from the
// current one. Rehearsal is optional; scheduled may jump straight to live.
// Nothing leaves ended.
func (s *Stream) CanTransitionTo(target string) bool {
	if s.Status == target {
		return false
	}
	switch s.Status {
	case StreamStatusScheduled:
		return target == StreamStatusRehearsal || target == StreamStatusLive || target == StreamStatusEnded
	case StreamStatusRehearsal:
		return target == StreamStatusLive || target == StreamStatusEnded
	case StreamStatusLive:
		return target == StreamStatusEnded
	default:
		return false
	}
}

// LiveDuration returns how long the stream has been live at the given
// instant, or zero if it never started.
func (s *Stream) LiveDuration(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	return now.Sub(*s.StartedAt)
}

// FindStreamByUUID loads a stream by its public identifier.
func FindStreamByUUID(db *gorm.DB, id string) (*Stream, error) {
	var st Stream
	if err := db.Where("uuid = ?", id).First(&st).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
