package entitlements

import (
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a resolver repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) TeamOwnerID(teamID uint) (uint, error) {
	var team models.Team
	if err := r.db.Select("id", "owner_user_id").First(&team, teamID).Error; err != nil {
		return 0, err
	}
	return team.OwnerUserID, nil
}

func (r *gormRepository) Membership(userID, teamID uint) (*models.Membership, error) {
	return models.FindMembership(r.db, userID, teamID)
}

func (r *gormRepository) ActiveGrants(userID, teamID uint) ([]models.AccessGrant, error) {
	var grants []models.AccessGrant
	err := r.db.
		Where("user_id = ? AND team_id = ? AND status = ?", userID, teamID, models.GrantStatusActive).
		Find(&grants).Error
	return grants, err
}

func (r *gormRepository) SpaceOfExperience(experienceID uint) (*models.Space, error) {
	var e models.Experience
	if err := r.db.Select("id", "space_id").First(&e, experienceID).Error; err != nil {
		return nil, err
	}
	var s models.Space
	if err := r.db.First(&s, e.SpaceID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
