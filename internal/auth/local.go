package auth

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
)

// LocalProvider handles local database authentication.
type LocalProvider struct {
	db *gorm.DB
}

const whereIDAndAuthSource = "id = ? AND auth_source = ?"

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	err := p.db.Where("username = ? AND auth_source = ?", username, models.AuthSourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// the system principal is a bookkeeping account, never a login
	if user.IsSystem() {
		return nil, ErrUserNotFound
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	return &user, nil
}

// ChangePassword changes a user's password after verifying the old one.
func (p *LocalProvider) ChangePassword(userID uuid.UUID, oldPassword, newPassword string) error {
	var user models.User
	if err := p.db.Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	hashedPassword := models.HashPassword(newPassword)

	return p.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", hashedPassword).Error
}

// ResetPassword resets a user's password (admin function).
func (p *LocalProvider) ResetPassword(userID uuid.UUID, newPassword string) error {
	hashedPassword := models.HashPassword(newPassword)

	return p.db.Model(&models.User{}).
		Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		Update("password", hashedPassword).Error
}

// ActivateUser activates a user account.
func (p *LocalProvider) ActivateUser(userID uuid.UUID) error {
	return p.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("active", true).Error
}

// DeactivateUser deactivates a user account, blocking further logins.
func (p *LocalProvider) DeactivateUser(userID uuid.UUID) error {
	return p.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("active", false).Error
}
