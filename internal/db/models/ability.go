package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ability is a role-level permission rule: it allows (or, when inverted,
// denies) an action on a subject type for every holder of the role.
// Conditions narrow the rule to resources whose fields match; Priority
// breaks ties between several matching rules, higher wins.
type Ability struct {
	// ID is the unique identifier for the ability.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// RoleID is the owning role. Abilities are removed with their role (CASCADE).
	RoleID uuid.UUID `gorm:"type:char(36);not null;index"`
	// Role is the associated role.
	Role *Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:CASCADE"`
	// Action is the verb, e.g. "read", "update", or "*".
	Action string `gorm:"size:50;not null"`
	// Subject names the resource type the rule applies to, e.g. "Listing", or "*".
	Subject string `gorm:"size:100;not null;index"`
	// Conditions optionally restricts the rule to resources whose fields
	// equal the given values. Null means the rule applies unconditionally.
	Conditions datatypes.JSONMap
	// Inverted turns the rule into an explicit deny.
	Inverted bool `gorm:"default:false"`
	// Priority orders competing rules; strictly higher priority wins.
	Priority int `gorm:"default:1;not null"`
	// CreatedAt is the timestamp when the ability was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the ability was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the Ability model.
func (Ability) TableName() string {
	return "abilities"
}

// BeforeCreate assigns a random UUID when none was set by the caller.
func (a *Ability) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return nil
}
