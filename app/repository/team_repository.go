package repository

import (
	"github.com/JonasWehrle/StagePass/app/models"
	"gorm.io/gorm"
)

// teamRepository implements the TeamRepository interface
type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new team repository instance
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(team *models.Team) error {
	return r.db.Create(team).Error
}

func (r *teamRepository) GetByID(id uint) (*models.Team, error) {
	var team models.Team
	if err := r.db.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) GetByOwner(ownerUserID uint) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.Where("owner_user_id = ?", ownerUserID).Find(&teams).Error
	return teams, err
}

func (r *teamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

func (r *teamRepository) Delete(id uint) error {
	return r.db.Delete(&models.Team{}, id).Error
}

func (r *teamRepository) Memberships(teamID uint) ([]models.Membership, error) {
	var memberships []models.Membership
	err := r.db.Where("team_id = ?", teamID).Order("id ASC").Find(&memberships).Error
	return memberships, err
}

func (r *teamRepository) GetMembership(userID, teamID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.Where("user_id = ? AND team_id = ?", userID, teamID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *teamRepository) SaveMembership(m *models.Membership) error {
	return r.db.Save(m).Error
}

func (r *teamRepository) RemoveMembership(userID, teamID uint) error {
	return r.db.Where("user_id = ? AND team_id = ?", userID, teamID).
		Delete(&models.Membership{}).Error
}

func (r *teamRepository) MemberCount(teamID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Membership{}).Where("team_id = ?", teamID).Count(&count).Error
	return count, err
}

// ActiveGrantCount counts grants a team currently honors. Expired rows the
// sweeper has not visited yet are excluded by the status filter alone, so the
// number can trail reality by one sweep interval.
func (r *teamRepository) ActiveGrantCount(teamID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessGrant{}).
		Where("team_id = ? AND status = ?", teamID, models.GrantStatusActive).
		Count(&count).Error
	return count, err
}
