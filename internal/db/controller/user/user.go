// Package user provides provisioning and CRUD operations for users,
// including role assignment. Soft-deleted users are invisible to every
// lookup here and release their email and username.
package user

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict is returned when the email or username is already
	// taken by a live user. Callers must surface this, not retry.
	ErrUserConflict = errors.New("user email or username already exists")
	// ErrUserInvalid is returned when email or username is empty.
	ErrUserInvalid = errors.New("user email and username cannot be empty")
	// ErrRoleAlreadyAssigned is returned when the (user, role) pair
	// already exists among live assignments.
	ErrRoleAlreadyAssigned = errors.New("role already assigned to user")
	// ErrSystemUserImmutable is returned on attempts to change or remove
	// the reserved system principal.
	ErrSystemUserImmutable = errors.New("system user is immutable")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a live user by ID.
func Get(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	result := db.Where("id = ?", id).First(&u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &u, nil
}

// GetByUsername retrieves a live user by username.
func GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	result := db.Where("username = ?", username).First(&u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &u, nil
}

// ListByTenant retrieves the live users of one tenant.
func ListByTenant(db *gorm.DB, tenantID uuid.UUID) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var users []models.User
	if err := db.Where("tenant_id = ?", tenantID).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// Create provisions a new local user with a hashed password. Email and
// username must be unique among live rows. actorID is recorded as
// created_by/updated_by; automated flows pass models.SystemUserID.
func Create(db *gorm.DB, tenantID *uuid.UUID, email, username, password string, actorID uuid.UUID) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if email == "" || username == "" {
		return nil, ErrUserInvalid
	}

	if err := checkConflict(db, email, username, uuid.Nil); err != nil {
		return nil, err
	}

	u := &models.User{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Email:      email,
		Username:   username,
		Password:   models.HashPassword(password),
		Active:     true,
		AuthSource: models.AuthSourceLocal,
		CreatedBy:  &actorID,
		UpdatedBy:  &actorID,
	}

	if err := db.Create(u).Error; err != nil {
		return nil, err
	}

	return u, nil
}

// Update changes a user's email, active flag and tenant binding.
func Update(db *gorm.DB, id uuid.UUID, email string, active bool, tenantID *uuid.UUID, actorID uuid.UUID) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if id == models.SystemUserID {
		return nil, ErrSystemUserImmutable
	}
	if email == "" {
		return nil, ErrUserInvalid
	}

	u, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if err := checkConflict(db, email, u.Username, id); err != nil {
		return nil, err
	}

	u.Email = email
	u.Active = active
	u.TenantID = tenantID
	u.UpdatedBy = &actorID

	if err := db.Save(u).Error; err != nil {
		return nil, err
	}

	return u, nil
}

// Delete soft-deletes a user and removes their role assignments and
// per-user ability overrides with it. The system principal cannot be
// deleted.
func Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}
	if id == models.SystemUserID {
		return ErrSystemUserImmutable
	}

	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", id).Delete(&models.UserAbility{}).Error
	})
}

// AssignRole links a role to a user. The pair must not already exist
// among live assignments.
func AssignRole(db *gorm.DB, userID, roleID, actorID uuid.UUID) (*models.UserRole, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var count int64
	if err := db.Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, ErrRoleAlreadyAssigned
	}

	ur := &models.UserRole{
		UserID:    userID,
		RoleID:    roleID,
		CreatedBy: &actorID,
		UpdatedBy: &actorID,
	}

	if err := db.Create(ur).Error; err != nil {
		return nil, err
	}

	return ur, nil
}

// RevokeRole removes a role assignment from a user.
func RevokeRole(db *gorm.DB, userID, roleID uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Roles retrieves the live roles assigned to a user.
func Roles(db *gorm.DB, userID uuid.UUID) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var assignments []models.UserRole
	if err := db.Where("user_id = ?", userID).Find(&assignments).Error; err != nil {
		return nil, err
	}

	if len(assignments) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.RoleID)
	}

	var roles []models.Role
	if err := db.Where("id IN ?", ids).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}

	return roles, nil
}

// checkConflict enforces email/username uniqueness among live rows.
func checkConflict(db *gorm.DB, email, username string, selfID uuid.UUID) error {
	var count int64

	q := db.Model(&models.User{}).Where("email = ? OR username = ?", email, username)
	if selfID != uuid.Nil {
		q = q.Where("id <> ?", selfID)
	}

	if err := q.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return ErrUserConflict
	}

	return nil
}
