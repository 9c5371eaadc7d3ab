// Package tenant provides CRUD operations for tenants, the isolation
// boundary every principal and permission scope is rooted in.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
)

var (
	// ErrTenantNotFound is returned when a tenant is not found.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantConflict is returned when the domain or code is already
	// taken by a live tenant. Callers must surface this, not retry.
	ErrTenantConflict = errors.New("tenant domain or code already exists")
	// ErrTenantInvalid is returned when domain or code is empty.
	ErrTenantInvalid = errors.New("tenant domain and code cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a live tenant by its ID.
func Get(db *gorm.DB, id uuid.UUID) (*models.Tenant, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var t models.Tenant
	result := db.Where("id = ?", id).First(&t)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, result.Error
	}

	return &t, nil
}

// GetByDomain retrieves a live tenant by its portal domain.
func GetByDomain(db *gorm.DB, domain string) (*models.Tenant, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var t models.Tenant
	result := db.Where("domain = ?", domain).First(&t)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, result.Error
	}

	return &t, nil
}

// List retrieves all live tenants.
func List(db *gorm.DB) ([]models.Tenant, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var tenants []models.Tenant
	if err := db.Order("domain").Find(&tenants).Error; err != nil {
		return nil, err
	}

	return tenants, nil
}

// Create creates a new tenant. Domain and code must be unique among live
// rows; a soft-deleted tenant does not block reuse of either.
func Create(db *gorm.DB, domain, code string, settings datatypes.JSONMap) (*models.Tenant, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if domain == "" || code == "" {
		return nil, ErrTenantInvalid
	}

	if err := checkConflict(db, domain, code, uuid.Nil); err != nil {
		return nil, err
	}

	t := &models.Tenant{
		Domain:   domain,
		Code:     code,
		Active:   true,
		Settings: settings,
	}

	if err := db.Create(t).Error; err != nil {
		return nil, err
	}

	return t, nil
}

// Update changes a tenant's domain, code, active flag and settings.
func Update(db *gorm.DB, id uuid.UUID, domain, code string, active bool, settings datatypes.JSONMap) (*models.Tenant, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if domain == "" || code == "" {
		return nil, ErrTenantInvalid
	}

	t, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if err := checkConflict(db, domain, code, id); err != nil {
		return nil, err
	}

	t.Domain = domain
	t.Code = code
	t.Active = active
	t.Settings = settings

	if err := db.Save(t).Error; err != nil {
		return nil, err
	}

	return t, nil
}

// Delete soft-deletes a tenant. Users of the tenant are kept and detached
// (tenant_id set to null); they outlive their tenant by design of the
// schema. The tenant's domain and code become reusable.
func Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Tenant{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTenantNotFound
		}

		// SET NULL semantics for environments where the FK is not enforced
		return tx.Model(&models.User{}).
			Where("tenant_id = ?", id).
			Update("tenant_id", nil).Error
	})
}

// checkConflict enforces domain/code uniqueness among live rows. The
// soft-delete column makes a plain unique index impractical across both
// supported engines, so the check lives here, inside the write path.
func checkConflict(db *gorm.DB, domain, code string, selfID uuid.UUID) error {
	var count int64

	q := db.Model(&models.Tenant{}).Where("domain = ? OR code = ?", domain, code)
	if selfID != uuid.Nil {
		q = q.Where("id <> ?", selfID)
	}

	if err := q.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return ErrTenantConflict
	}

	return nil
}
