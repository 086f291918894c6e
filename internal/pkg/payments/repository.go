package payments

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonasWehrle/StagePass/app/models"
)

// Repository provides DB operations used by the payment intake service.
type Repository interface {
	CreateEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkEventProcessed(id uint, processingError string) error
	AccessPassWithSpace(id uint) (*models.AccessPass, error)
	CreatePurchaseIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error)
	PurchaseByProviderRef(provider, providerPaymentID string) (*models.Purchase, error)
	UpdatePurchase(id uint, updates map[string]interface{}) error
	GrantByID(id uint) (*models.AccessGrant, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkEventProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) AccessPassWithSpace(id uint) (*models.AccessPass, error) {
	var pass models.AccessPass
	if err := r.db.Preload("Space").First(&pass, id).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

func (r *gormRepository) CreatePurchaseIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_payment_id"},
		},
		DoNothing: true,
	}).Create(purchase)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Purchase
	if err := r.db.Where("provider = ? AND provider_payment_id = ?", purchase.Provider, purchase.ProviderPaymentID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) PurchaseByProviderRef(provider, providerPaymentID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("provider = ? AND provider_payment_id = ?", provider, providerPaymentID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *gormRepository) UpdatePurchase(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Purchase{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GrantByID(id uint) (*models.AccessGrant, error) {
	var grant models.AccessGrant
	if err := r.db.First(&grant, id).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}
