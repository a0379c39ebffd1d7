package services

import (
	"time"

	"skyport-server/models"
	"skyport-server/storage"

	"gorm.io/gorm"
)

// Account is the merged view over the User and Agent tables, so login and
// profile lookups don't repeat the try-user-then-agent dance at every call
// site.
type Account struct {
	ID            uint
	FullName      string
	Email         string
	Password      string
	Role          models.Role
	Phone         string
	NationalID    string
	PhoneVerified bool
	IsApproved    bool
	CreatedAt     time.Time
}

// FindAccountByEmail resolves an email against users first, then agents.
// Returns gorm.ErrRecordNotFound when neither table matches.
func FindAccountByEmail(email string) (*Account, error) {
	var user models.User
	err := storage.DB.Where("email = ?", email).First(&user).Error
	if err == nil {
		return userAccount(&user), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var agent models.Agent
	if err := storage.DB.Where("email = ?", email).First(&agent).Error; err != nil {
		return nil, err
	}
	return agentAccount(&agent), nil
}

// FindAccountByID resolves an ID with a role hint from the access token.
func FindAccountByID(id uint, role models.Role) (*Account, error) {
	if role == models.RoleAgent {
		var agent models.Agent
		if err := storage.DB.First(&agent, id).Error; err != nil {
			return nil, err
		}
		return agentAccount(&agent), nil
	}
	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return userAccount(&user), nil
}

func userAccount(u *models.User) *Account {
	return &Account{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		Password:      u.Password,
		Role:          u.Role,
		Phone:         u.Phone,
		NationalID:    u.NationalID,
		PhoneVerified: u.PhoneVerified,
		IsApproved:    u.IsApproved,
		CreatedAt:     u.CreatedAt,
	}
}

func agentAccount(a *models.Agent) *Account {
	return &Account{
		ID:         a.ID,
		FullName:   a.FullName,
		Email:      a.Email,
		Password:   a.Password,
		Role:       models.RoleAgent,
		IsApproved: true,
	}
}
