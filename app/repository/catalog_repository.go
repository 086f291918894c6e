package repository

import (
	"github.com/JonasWehrle/StagePass/app/models"
	"gorm.io/gorm"
)

// catalogRepository implements the CatalogRepository interface
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository instance
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateSpace(space *models.Space) error {
	return r.db.Create(space).Error
}

func (r *catalogRepository) GetSpaceByID(id uint) (*models.Space, error) {
	var space models.Space
	if err := r.db.First(&space, id).Error; err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *catalogRepository) GetSpaceByUUID(uuid string) (*models.Space, error) {
	var space models.Space
	if err := r.db.Where("uuid = ?", uuid).First(&space).Error; err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *catalogRepository) GetSpaceByTeam(teamID uint) (*models.Space, error) {
	var space models.Space
	if err := r.db.Where("team_id = ?", teamID).First(&space).Error; err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *catalogRepository) UpdateSpace(space *models.Space) error {
	return r.db.Save(space).Error
}

func (r *catalogRepository) CreateExperience(exp *models.Experience) error {
	return r.db.Create(exp).Error
}

func (r *catalogRepository) GetExperienceByID(id uint) (*models.Experience, error) {
	var exp models.Experience
	if err := r.db.First(&exp, id).Error; err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *catalogRepository) GetExperienceByUUID(uuid string) (*models.Experience, error) {
	var exp models.Experience
	if err := r.db.Where("uuid = ?", uuid).First(&exp).Error; err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *catalogRepository) ListExperiences(spaceID uint) ([]models.Experience, error) {
	var exps []models.Experience
	err := r.db.Where("space_id = ?", spaceID).Order("id ASC").Find(&exps).Error
	return exps, err
}

func (r *catalogRepository) UpdateExperience(exp *models.Experience) error {
	return r.db.Save(exp).Error
}

func (r *catalogRepository) DeleteExperience(id uint) error {
	return r.db.Delete(&models.Experience{}, id).Error
}

func (r *catalogRepository) CreatePass(pass *models.AccessPass) error {
	return r.db.Create(pass).Error
}

func (r *catalogRepository) GetPassByID(id uint) (*models.AccessPass, error) {
	var pass models.AccessPass
	if err := r.db.Preload("Experiences").First(&pass, id).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

func (r *catalogRepository) ListPassesBySpace(spaceID uint) ([]models.AccessPass, error) {
	var passes []models.AccessPass
	err := r.db.Where("space_id = ?", spaceID).Order("id ASC").Find(&passes).Error
	return passes, err
}

func (r *catalogRepository) UpdatePass(pass *models.AccessPass) error {
	return r.db.Save(pass).Error
}

// SetPassExperiences replaces the pass's experience list atomically.
func (r *catalogRepository) SetPassExperiences(passID uint, experienceIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("access_pass_id = ?", passID).
			Delete(&models.AccessPassExperience{}).Error; err != nil {
			return err
		}
		for i, expID := range experienceIDs {
			link := models.AccessPassExperience{
				AccessPassID: passID,
				ExperienceID: expID,
				Included:     true,
				Position:     i,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
