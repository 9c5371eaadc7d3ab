package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole links a user to a role. A user holds each role at most once
// among live rows; the link is removed when either side is deleted.
type UserRole struct {
	// ID is the unique identifier for the assignment.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// UserID is the user side of the link (CASCADE on user delete).
	UserID uuid.UUID `gorm:"type:char(36);not null;index:idx_user_roles_pair"`
	// User is the associated user.
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	// RoleID is the role side of the link (CASCADE on role delete).
	RoleID uuid.UUID `gorm:"type:char(36);not null;index:idx_user_roles_pair"`
	// Role is the associated role.
	Role *Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:CASCADE"`
	// CreatedBy references the user that granted the role.
	CreatedBy *uuid.UUID `gorm:"type:char(36)"`
	// UpdatedBy references the user that last changed the assignment.
	UpdatedBy *uuid.UUID `gorm:"type:char(36)"`
	// CreatedAt is the timestamp when the assignment was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the assignment was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker. A soft-deleted assignment
	// contributes nothing to authorization and frees the (user, role) pair.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}

// BeforeCreate assigns a random UUID when none was set by the caller.
func (ur *UserRole) BeforeCreate(_ *gorm.DB) error {
	if ur.ID == uuid.Nil {
		ur.ID = uuid.New()
	}

	return nil
}
