package repository

import (
	"github.com/JonasWehrle/StagePass/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// TeamRepository defines the interface for team and membership operations
type TeamRepository interface {
	Create(team *models.Team) error
	GetByID(id uint) (*models.Team, error)
	GetByOwner(ownerUserID uint) ([]models.Team, error)
	Update(team *models.Team) error
	Delete(id uint) error
	Memberships(teamID uint) ([]models.Membership, error)
	GetMembership(userID, teamID uint) (*models.Membership, error)
	SaveMembership(m *models.Membership) error
	RemoveMembership(userID, teamID uint) error
	MemberCount(teamID uint) (int64, error)
	ActiveGrantCount(teamID uint) (int64, error)
}

// CatalogRepository defines the interface for spaces, experiences and passes
type CatalogRepository interface {
	CreateSpace(space *models.Space) error
	GetSpaceByID(id uint) (*models.Space, error)
	GetSpaceByUUID(uuid string) (*models.Space, error)
	GetSpaceByTeam(teamID uint) (*models.Space, error)
	UpdateSpace(space *models.Space) error

	CreateExperience(exp *models.Experience) error
	GetExperienceByID(id uint) (*models.Experience, error)
	GetExperienceByUUID(uuid string) (*models.Experience, error)
	ListExperiences(spaceID uint) ([]models.Experience, error)
	UpdateExperience(exp *models.Experience) error
	DeleteExperience(id uint) error

	CreatePass(pass *models.AccessPass) error
	GetPassByID(id uint) (*models.AccessPass, error)
	ListPassesBySpace(spaceID uint) ([]models.AccessPass, error)
	UpdatePass(pass *models.AccessPass) error
	SetPassExperiences(passID uint, experienceIDs []uint) error
}

// StreamRepository defines the interface for stream persistence
type StreamRepository interface {
	Create(stream *models.Stream) error
	GetByID(id uint) (*models.Stream, error)
	GetByUUID(uuid string) (*models.Stream, error)
	ListByExperience(experienceID uint) ([]models.Stream, error)
	ListLive() ([]models.Stream, error)
	Update(stream *models.Stream) error
	Delete(id uint) error
}

// WaitlistRepository defines the interface for waitlist operations
type WaitlistRepository interface {
	Add(entry *models.WaitlistEntry) error
	GetByID(id uint) (*models.WaitlistEntry, error)
	ListPending(accessPassID uint) ([]models.WaitlistEntry, error)
	DecideIf(id uint, from, to string) (bool, error)
}

// PurchaseRepository defines the interface for purchase reads
type PurchaseRepository interface {
	GetByID(id uint) (*models.Purchase, error)
	ListByUser(userID uint, offset, limit int) ([]models.Purchase, error)
	ListByTeam(teamID uint, offset, limit int) ([]models.Purchase, error)
	CountByTeam(teamID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Team     TeamRepository
	Catalog  CatalogRepository
	Stream   StreamRepository
	Waitlist WaitlistRepository
	Purchase PurchaseRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Team:     NewTeamRepository(db),
		Catalog:  NewCatalogRepository(db),
		Stream:   NewStreamRepository(db),
		Waitlist: NewWaitlistRepository(db),
		Purchase: NewPurchaseRepository(db),
	}
}
