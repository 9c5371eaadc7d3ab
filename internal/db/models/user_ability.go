package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserAbility is a per-user, per-tenant permission override. It sits above
// the coarse role-derived abilities: a grant (or an inverted deny) that
// applies only to one user inside one tenant, optionally only while the
// user acts under a specific role (RoleContextID).
type UserAbility struct {
	// ID is the unique identifier for the override.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// UserID is the user the override belongs to (CASCADE on user delete).
	UserID uuid.UUID `gorm:"type:char(36);not null;index"`
	// User is the associated user.
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	// TenantID scopes the override to one tenant. Required.
	TenantID uuid.UUID `gorm:"type:char(36);not null;index"`
	// Tenant is the associated tenant.
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE"`
	// Action is the verb, e.g. "read", "update", or "*".
	Action string `gorm:"size:50;not null"`
	// Subject names the resource type the rule applies to, or "*".
	Subject string `gorm:"size:100;not null;index"`
	// Conditions optionally restricts the rule to matching resources.
	Conditions datatypes.JSONMap
	// Inverted turns the override into an explicit deny.
	Inverted bool `gorm:"default:false"`
	// RoleContextID optionally restricts the override to decisions made
	// while the user is acting under that role. Null applies always.
	RoleContextID *uuid.UUID `gorm:"type:char(36)"`
	// RoleContext is the associated role context.
	RoleContext *Role `gorm:"foreignKey:RoleContextID;references:ID;constraint:OnDelete:SET NULL"`
	// Priority orders competing rules; strictly higher priority wins.
	Priority int `gorm:"default:1;not null"`
	// CreatedAt is the timestamp when the override was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the override was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the UserAbility model.
func (UserAbility) TableName() string {
	return "user_abilities"
}

// BeforeCreate assigns a random UUID when none was set by the caller.
func (ua *UserAbility) BeforeCreate(_ *gorm.DB) error {
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}

	return nil
}
