// Package role provides CRUD operations for roles and their abilities.
// Destructive operations consult the authorization guard first: protected
// roles can never be deleted and their abilities can never be removed,
// regardless of the caller's own permissions.
package role

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/db/models"
)

var (
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrAbilityNotFound is returned when an ability is not found.
	ErrAbilityNotFound = errors.New("ability not found")
	// ErrRoleConflict is returned when the role name is already taken by
	// a live role. Callers must surface this, not retry.
	ErrRoleConflict = errors.New("role name already exists")
	// ErrRoleInvalid is returned when the role name is empty.
	ErrRoleInvalid = errors.New("role name cannot be empty")
	// ErrAbilityInvalid is returned when an ability's action or subject is empty.
	ErrAbilityInvalid = errors.New("ability action and subject cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a live role by ID.
func Get(db *gorm.DB, id uuid.UUID) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var r models.Role
	result := db.Where("id = ?", id).First(&r)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	return &r, nil
}

// GetByName retrieves a live role by its name.
func GetByName(db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrRoleInvalid
	}

	var r models.Role
	result := db.Where("name = ?", name).First(&r)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	return &r, nil
}

// List retrieves all live roles.
func List(db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	if err := db.Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}

	return roles, nil
}

// Create creates a new role. The name must be unique among live rows.
func Create(db *gorm.DB, name, description string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrRoleInvalid
	}

	var count int64
	if err := db.Model(&models.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrRoleConflict
	}

	r := &models.Role{Name: name, Description: description}
	if err := db.Create(r).Error; err != nil {
		return nil, err
	}

	return r, nil
}

// Delete soft-deletes a role together with its abilities, role
// assignments and any per-user overrides scoped to it as role context.
// Protected roles are refused before anything is touched.
func Delete(db *gorm.DB, guard *authz.Guard, id uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}

	r, err := Get(db, id)
	if err != nil {
		return err
	}

	if err := guard.CheckRoleMutation(r.Name); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&models.Role{}).Error; err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", id).Delete(&models.Ability{}).Error; err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		// overrides bound to this role as context lose their anchor
		return tx.Model(&models.UserAbility{}).
			Where("role_context_id = ?", id).
			Update("role_context_id", nil).Error
	})
}

// Abilities retrieves the live abilities of a role.
func Abilities(db *gorm.DB, roleID uuid.UUID) ([]models.Ability, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var abilities []models.Ability
	if err := db.Where("role_id = ?", roleID).
		Order("priority DESC, subject, action").
		Find(&abilities).Error; err != nil {
		return nil, err
	}

	return abilities, nil
}

// AddAbility attaches a permission rule to a role.
func AddAbility(
	db *gorm.DB,
	roleID uuid.UUID,
	action, subject string,
	conditions datatypes.JSONMap,
	inverted bool,
	priority int,
) (*models.Ability, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if action == "" || subject == "" {
		return nil, ErrAbilityInvalid
	}

	if _, err := Get(db, roleID); err != nil {
		return nil, err
	}

	if priority < 1 {
		priority = 1
	}

	a := &models.Ability{
		RoleID:     roleID,
		Action:     action,
		Subject:    subject,
		Conditions: conditions,
		Inverted:   inverted,
		Priority:   priority,
	}

	if err := db.Create(a).Error; err != nil {
		return nil, err
	}

	return a, nil
}

// RemoveAbility detaches a permission rule from a role. Stripping a
// protected role is refused, same as deleting it: the guard keeps the
// platform's own roles functional.
func RemoveAbility(db *gorm.DB, guard *authz.Guard, roleID, abilityID uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}

	r, err := Get(db, roleID)
	if err != nil {
		return err
	}

	if err := guard.CheckRoleMutation(r.Name); err != nil {
		return err
	}

	result := db.Where("id = ? AND role_id = ?", abilityID, roleID).Delete(&models.Ability{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAbilityNotFound
	}

	return nil
}
