package repository

import (
	"github.com/JonasWehrle/StagePass/app/models"
	"gorm.io/gorm"
)

// purchaseRepository implements the PurchaseRepository interface
type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository instance
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) GetByID(id uint) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.First(&purchase, id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) ListByUser(userID uint, offset, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).Order("id DESC").
		Offset(offset).Limit(limit).Find(&purchases).Error
	return purchases, err
}

func (r *purchaseRepository) ListByTeam(teamID uint, offset, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("team_id = ?", teamID).Order("id DESC").
		Offset(offset).Limit(limit).Find(&purchases).Error
	return purchases, err
}

func (r *purchaseRepository) CountByTeam(teamID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Purchase{}).Where("team_id = ?", teamID).Count(&count).Error
	return count, err
}
