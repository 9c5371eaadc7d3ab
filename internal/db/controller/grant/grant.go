// Package grant manages per-user, per-tenant permission overrides. A
// grant refines (or, when inverted, narrows) what a user's roles allow,
// and only ever applies inside the tenant it was issued for.
package grant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
)

var (
	// ErrGrantNotFound is returned when a grant is not found.
	ErrGrantNotFound = errors.New("grant not found")
	// ErrGrantInvalid is returned when action or subject is empty.
	ErrGrantInvalid = errors.New("grant action and subject cannot be empty")
	// ErrGrantUserNotFound is returned when the target user does not exist.
	ErrGrantUserNotFound = errors.New("grant target user not found")
	// ErrGrantTenantNotFound is returned when the target tenant does not exist.
	ErrGrantTenantNotFound = errors.New("grant target tenant not found")
	// ErrGrantRoleContextNotFound is returned when a role context was
	// requested but no live role carries that ID.
	ErrGrantRoleContextNotFound = errors.New("grant role context not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a live grant by ID.
func Get(db *gorm.DB, id uuid.UUID) (*models.UserAbility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ua models.UserAbility
	result := db.Where("id = ?", id).First(&ua)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, result.Error
	}

	return &ua, nil
}

// ListByUser retrieves the live grants of a user inside one tenant,
// highest priority first.
func ListByUser(db *gorm.DB, userID, tenantID uuid.UUID) ([]models.UserAbility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var grants []models.UserAbility
	err := db.
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Order("priority DESC, subject, action").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}

	return grants, nil
}

// ListByTenant retrieves every live grant issued inside a tenant.
func ListByTenant(db *gorm.DB, tenantID uuid.UUID) ([]models.UserAbility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var grants []models.UserAbility
	err := db.
		Where("tenant_id = ?", tenantID).
		Order("priority DESC, subject, action").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}

	return grants, nil
}

// Create issues a grant to a user inside a tenant. The user, the tenant
// and (when given) the role context must all exist as live rows.
func Create(
	db *gorm.DB,
	userID, tenantID uuid.UUID,
	action, subject string,
	conditions datatypes.JSONMap,
	inverted bool,
	roleContextID *uuid.UUID,
	priority int,
) (*models.UserAbility, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if action == "" || subject == "" {
		return nil, ErrGrantInvalid
	}

	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrGrantUserNotFound
	}

	if err := db.Model(&models.Tenant{}).Where("id = ?", tenantID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrGrantTenantNotFound
	}

	if roleContextID != nil {
		if err := db.Model(&models.Role{}).Where("id = ?", *roleContextID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrGrantRoleContextNotFound
		}
	}

	if priority < 1 {
		priority = 1
	}

	ua := &models.UserAbility{
		UserID:        userID,
		TenantID:      tenantID,
		Action:        action,
		Subject:       subject,
		Conditions:    conditions,
		Inverted:      inverted,
		RoleContextID: roleContextID,
		Priority:      priority,
	}
	if err := db.Create(ua).Error; err != nil {
		return nil, err
	}

	return ua, nil
}

// Update modifies the rule fields of an existing grant. The user and
// tenant binding of a grant never changes; revoke and re-issue instead.
func Update(
	db *gorm.DB,
	id uuid.UUID,
	action, subject string,
	conditions datatypes.JSONMap,
	inverted bool,
	roleContextID *uuid.UUID,
	priority int,
) (*models.UserAbility, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if action == "" || subject == "" {
		return nil, ErrGrantInvalid
	}

	ua, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if roleContextID != nil {
		var count int64
		if err := db.Model(&models.Role{}).Where("id = ?", *roleContextID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrGrantRoleContextNotFound
		}
	}

	if priority < 1 {
		priority = 1
	}

	ua.Action = action
	ua.Subject = subject
	ua.Conditions = conditions
	ua.Inverted = inverted
	ua.RoleContextID = roleContextID
	ua.Priority = priority

	// Select forces writes of zero values such as inverted=false and a
	// cleared role context.
	err = db.Model(ua).
		Select("action", "subject", "conditions", "inverted", "role_context_id", "priority").
		Updates(ua).Error
	if err != nil {
		return nil, err
	}

	return ua, nil
}

// Delete revokes a grant.
func Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, id); err != nil {
		return err
	}

	return db.Where("id = ?", id).Delete(&models.UserAbility{}).Error
}
