package streams

import (
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
)

// Repository provides the DB operations used by the stream lifecycle.
type Repository interface {
	StreamByUUID(uuid string) (*models.Stream, error)
	ExperienceWithSpace(experienceID uint) (*models.Experience, *models.Space, error)
	// UpdateStreamIf applies updates only while the stream still has the
	// expected status and reports whether a row changed.
	UpdateStreamIf(streamID uint, fromStatus string, updates map[string]interface{}) (bool, error)
	SaveRoomIDs(streamID uint, roomID, chatChannelID string) error
	LiveStreams() ([]models.Stream, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a stream repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) StreamByUUID(uuid string) (*models.Stream, error) {
	return models.FindStreamByUUID(r.db, uuid)
}

func (r *gormRepository) ExperienceWithSpace(experienceID uint) (*models.Experience, *models.Space, error) {
	var e models.Experience
	if err := r.db.First(&e, experienceID).Error; err != nil {
		return nil, nil, err
	}
	var s models.Space
	if err := r.db.First(&s, e.SpaceID).Error; err != nil {
		return nil, nil, err
	}
	return &e, &s, nil
}

func (r *gormRepository) UpdateStreamIf(streamID uint, fromStatus string, updates map[string]interface{}) (bool, error) {
	tx := r.db.Model(&models.Stream{}).
		Where("id = ? AND status = ?", streamID, fromStatus).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) SaveRoomIDs(streamID uint, roomID, chatChannelID string) error {
	updates := map[string]interface{}{}
	if roomID != "" {
		updates["room_id"] = roomID
	}
	if chatChannelID != "" {
		updates["chat_channel_id"] = chatChannelID
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Stream{}).Where("id = ?", streamID).Updates(updates).Error
}

func (r *gormRepository) LiveStreams() ([]models.Stream, error) {
	var out []models.Stream
	err := r.db.Where("status = ?", models.StreamStatusLive).Order("id").Find(&out).Error
	return out, err
}
