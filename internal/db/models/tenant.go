package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant is the isolation boundary of the platform. Every principal and
// every permission scope is rooted in a tenant. Tenants are addressed by
// their portal domain and by a short code used in provisioning APIs.
type Tenant struct {
	// ID is the unique identifier for the tenant.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// Domain is the portal domain the tenant is served under.
	// Unique among live (non soft-deleted) rows.
	Domain string `gorm:"size:255;not null;index"`
	// Code is the short provisioning code for the tenant.
	// Unique among live rows.
	Code string `gorm:"size:32;not null;index"`
	// Active indicates whether the tenant may be served at all.
	Active bool `gorm:"default:true"`
	// Settings holds opaque per-tenant configuration (branding, search
	// defaults, feature toggles). Interpreted by the frontend, not here.
	Settings datatypes.JSONMap
	// CreatedAt is the timestamp when the tenant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the tenant was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker. Soft-deleted tenants are invisible
	// to lookups and release their domain and code for reuse.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the Tenant model.
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate assigns a random UUID when none was set by the caller.
func (t *Tenant) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	return nil
}
