package repository

import (
	"time"

	"github.com/JonasWehrle/StagePass/app/models"
	"gorm.io/gorm"
)

// waitlistRepository implements the WaitlistRepository interface
type waitlistRepository struct {
	db *gorm.DB
}

// NewWaitlistRepository creates a new waitlist repository instance
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) Add(entry *models.WaitlistEntry) error {
	return r.db.Create(entry).Error
}

func (r *waitlistRepository) GetByID(id uint) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	if err := r.db.Preload("AccessPass").First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitlistRepository) ListPending(accessPassID uint) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.db.Where("access_pass_id = ? AND status = ?", accessPassID, models.WaitlistStatusPending).
		Order("created_at ASC").Find(&entries).Error
	return entries, err
}

// DecideIf moves an entry from one status to another only when it still is in
// the expected status, so two moderators deciding at once cannot both win.
func (r *waitlistRepository) DecideIf(id uint, from, to string) (bool, error) {
	now := time.Now()
	tx := r.db.Model(&models.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"decided_at": &now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
