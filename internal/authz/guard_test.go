package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/controller/setting"
	"github.com/openrealty/openrealty/internal/db/models"
)

func TestNewGuardDefaults(t *testing.T) {
	g := NewGuard()
	assert.True(t, g.Protected(models.RoleSystem))
	assert.True(t, g.Protected(models.RoleAdmin))
	assert.False(t, g.Protected(models.RoleUser))
}

func TestCheckRoleMutation(t *testing.T) {
	g := NewGuard("system", "auditor")

	require.ErrorIs(t, g.CheckRoleMutation("system"), ErrProtectedRole)
	require.ErrorIs(t, g.CheckRoleMutation("auditor"), ErrProtectedRole)
	require.NoError(t, g.CheckRoleMutation("admin"))
	require.NoError(t, g.CheckRoleMutation("agent"))
}

func TestLoadGuard(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}))

	t.Run("setting absent falls back", func(t *testing.T) {
		g := LoadGuard(db)
		assert.True(t, g.Protected(models.RoleSystem))
		assert.True(t, g.Protected(models.RoleAdmin))
	})

	t.Run("setting absent uses given fallback", func(t *testing.T) {
		g := LoadGuard(db, "auditor")
		assert.True(t, g.Protected("auditor"))
		assert.False(t, g.Protected(models.RoleAdmin))
	})

	t.Run("stored names win", func(t *testing.T) {
		_, err := setting.Set(db, ProtectedRolesSetting, []byte(`["system","compliance"]`))
		require.NoError(t, err)

		g := LoadGuard(db)
		assert.True(t, g.Protected("system"))
		assert.True(t, g.Protected("compliance"))
		assert.False(t, g.Protected(models.RoleAdmin))
	})

	t.Run("unreadable value falls back", func(t *testing.T) {
		_, err := setting.Set(db, ProtectedRolesSetting, []byte(`not json`))
		require.NoError(t, err)

		g := LoadGuard(db)
		assert.True(t, g.Protected(models.RoleSystem))
		assert.True(t, g.Protected(models.RoleAdmin))
	})
}
