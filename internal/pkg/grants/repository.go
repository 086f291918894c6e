package grants

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonasWehrle/StagePass/app/models"
)

// Repository provides the DB operations used by the grant ledger. Mutating
// methods are expected to run inside a Transaction so that a grant change
// and its membership sync commit or roll back together.
type Repository interface {
	Transaction(fn func(tx Repository) error) error

	GrantByUUID(uuid string) (*models.AccessGrant, error)
	ActiveGrantForUpdate(userID uint, ref models.PurchasableRef) (*models.AccessGrant, error)
	CreateGrant(g *models.AccessGrant) error
	UpdateGrantStatusIf(grantID uint, from, to string) (bool, error)
	ExpiredActiveGrants(now time.Time, limit int) ([]models.AccessGrant, error)

	MembershipForUpdate(userID, teamID uint) (*models.Membership, error)
	CreateMembership(m *models.Membership) error
	SaveMembership(m *models.Membership) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a grant repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(fn func(tx Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GrantByUUID(uuid string) (*models.AccessGrant, error) {
	var g models.AccessGrant
	if err := r.db.Where("uuid = ?", uuid).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gormRepository) ActiveGrantForUpdate(userID uint, ref models.PurchasableRef) (*models.AccessGrant, error) {
	var g models.AccessGrant
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND purchasable_kind = ? AND purchasable_id = ? AND status = ?",
			userID, ref.Kind, ref.ID, models.GrantStatusActive).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gormRepository) CreateGrant(g *models.AccessGrant) error {
	return r.db.Create(g).Error
}

// UpdateGrantStatusIf transitions a grant only when it still has the
// expected status. The conditional WHERE keeps overlapping sweeps and
// concurrent cancellations from double-applying a transition.
func (r *gormRepository) UpdateGrantStatusIf(grantID uint, from, to string) (bool, error) {
	tx := r.db.Model(&models.AccessGrant{}).
		Where("id = ? AND status = ?", grantID, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ExpiredActiveGrants(now time.Time, limit int) ([]models.AccessGrant, error) {
	var grants []models.AccessGrant
	q := r.db.
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.GrantStatusActive, now).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&grants).Error
	return grants, err
}

func (r *gormRepository) MembershipForUpdate(userID, teamID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) CreateMembership(m *models.Membership) error {
	return r.db.Create(m).Error
}

func (r *gormRepository) SaveMembership(m *models.Membership) error {
	return r.db.Save(m).Error
}
