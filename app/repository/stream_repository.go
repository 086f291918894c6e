package repository

import (
	"github.com/JonasWehrle/StagePass/app/models"
	"gorm.io/gorm"
)

// streamRepository implements the StreamRepository interface
type streamRepository struct {
	db *gorm.DB
}

// NewStreamRepository creates a new stream repository instance
func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &streamRepository{db: db}
}

func (r *streamRepository) Create(stream *models.Stream) error {
	return r.db.Create(stream).Error
}

func (r *streamRepository) GetByID(id uint) (*models.Stream, error) {
	var stream models.Stream
	if err := r.db.First(&stream, id).Error; err != nil {
		return nil, err
	}
	return &stream, nil
}

func (r *streamRepository) GetByUUID(uuid string) (*models.Stream, error) {
	var stream models.Stream
	if err := r.db.Where("uuid = ?", uuid).First(&stream).Error; err != nil {
		return nil, err
	}
	return &stream, nil
}

func (r *streamRepository) ListByExperience(experienceID uint) ([]models.Stream, error) {
	var streams []models.Stream
	err := r.db.Where("experience_id = ?", experienceID).Order("id DESC").Find(&streams).Error
	return streams, err
}

func (r *streamRepository) ListLive() ([]models.Stream, error) {
	var streams []models.Stream
	err := r.db.Where("status = ?", models.StreamStatusLive).Find(&streams).Error
	return streams, err
}

func (r *streamRepository) Update(stream *models.Stream) error {
	return r.db.Save(stream).Error
}

func (r *streamRepository) Delete(id uint) error {
	return r.db.Delete(&models.Stream{}, id).Error
}
