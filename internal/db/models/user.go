package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuthSource represents the authentication source for a user account.
type AuthSource string

const (
	// AuthSourceLocal indicates the user authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC indicates the user authenticates via OpenID Connect (OIDC).
	AuthSourceOIDC AuthSource = "oidc"
)

// SystemUserID is the reserved all-zero UUID of the system principal.
// It is created once at bootstrap, carries the "system" role and acts as
// created_by/updated_by for automated operations. It can never log in.
var SystemUserID = uuid.Nil

// User is a principal. A user belongs to at most one tenant; when the
// tenant is removed the user outlives it with tenant_id set to null.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// TenantID is the owning tenant. Nullable: SET NULL on tenant delete.
	TenantID *uuid.UUID `gorm:"type:char(36);index"`
	// Tenant is the associated tenant.
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:SET NULL"`
	// Email is the user's email address. Unique among live rows.
	Email string `gorm:"size:255;not null;index"`
	// Username is the login name. Unique among live rows.
	Username string `gorm:"size:100;not null;index"`
	// Password is the Argon2id hashed password (local authentication only).
	Password string `gorm:"size:255"`
	// Active indicates whether the account may authenticate.
	Active bool `gorm:"default:true"`
	// AuthSource indicates how this user authenticates (local or oidc).
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the OIDC subject claim for externally managed accounts.
	ExternalID string `gorm:"size:255"`
	// CreatedBy references the user that provisioned this account.
	CreatedBy *uuid.UUID `gorm:"type:char(36)"`
	// UpdatedBy references the user that last changed this account.
	UpdatedBy *uuid.UUID `gorm:"type:char(36)"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker. Soft-deleted users are excluded
	// from authentication, authorization and uniqueness checks.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsSystem reports whether this row is the reserved system principal.
func (u *User) IsSystem() bool {
	return u.ID == SystemUserID
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the stored hash.
// It uses constant-time comparison to prevent timing attacks.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
