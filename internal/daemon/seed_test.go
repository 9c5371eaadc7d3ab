package daemon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/controller/setting"
	"github.com/openrealty/openrealty/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.Ability{},
		&models.UserRole{},
		&models.UserAbility{},
		&models.Listing{},
		&models.Setting{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestSeed(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{}
	cfg.Authz.ProtectedRoles = []string{"system", "admin"}

	seed(cfg, db)

	// built-in roles exist
	for _, name := range []string{models.RoleSystem, models.RoleAdmin, models.RoleUser} {
		var r models.Role
		err := db.Where("name = ?", name).First(&r).Error
		require.NoError(t, err, "role %s should be seeded", name)
	}

	// system principal carries the reserved ID and cannot log in
	var system models.User
	err := db.Where("username = ?", "system").First(&system).Error
	require.NoError(t, err)
	assert.Equal(t, models.SystemUserID, system.ID)
	assert.False(t, system.Active)
	assert.True(t, system.IsSystem())

	// admin account exists, is active and carries a password
	var admin models.User
	err = db.Where("username = ?", "admin").First(&admin).Error
	require.NoError(t, err)
	assert.True(t, admin.Active)
	assert.True(t, admin.VerifyPassword("changeme"))
	assert.NotEqual(t, models.SystemUserID, admin.ID)

	// protected-role list landed in the settings table
	s, err := setting.Get(db, authz.ProtectedRolesSetting)
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.Unmarshal(s.Value, &names))
	assert.Equal(t, []string{"system", "admin"}, names)
}

func TestSeedIdempotent(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{}
	cfg.Authz.ProtectedRoles = []string{"system", "admin"}

	seed(cfg, db)

	// flip the admin password, then seed again
	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	admin.Password = models.HashPassword("operator-set")
	require.NoError(t, db.Save(&admin).Error)

	seed(cfg, db)

	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	assert.EqualValues(t, 2, userCount, "reseeding must not add users")

	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.VerifyPassword("operator-set"), "reseeding must not reset passwords")
}
