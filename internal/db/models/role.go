package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reserved role names created at bootstrap. Which names are protected from
// deletion is configuration (see authz.Guard); these are only the defaults
// the seeder installs.
const (
	// RoleSystem is the role carried by the reserved system principal.
	RoleSystem = "system"
	// RoleAdmin is the platform administrator role.
	RoleAdmin = "admin"
	// RoleUser is the default role for provisioned portal users.
	RoleUser = "user"
)

// Role is a named bundle of abilities. Role names are global, not
// tenant-scoped: tenant-specific differences are expressed through
// per-user ability overrides instead of per-tenant role copies.
type Role struct {
	// ID is the unique identifier for the role.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// Name is the unique role name (e.g. "admin", "user").
	Name string `gorm:"size:100;not null;index"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// Abilities are the permission rules owned by this role.
	// Removed together with the role (CASCADE).
	Abilities []Ability `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker. Soft-deleted roles contribute no
	// abilities to authorization decisions.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// BeforeCreate assigns a random UUID when none was set by the caller.
func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	return nil
}
