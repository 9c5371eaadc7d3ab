package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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
		&models.UserRole{},
		&models.UserAbility{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()

	role := &models.Role{Name: name}
	require.NoError(t, db.Create(role).Error)

	return role
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		email         string
		username      string
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			email:         "a@example.com",
			username:      "a",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty email",
			dbParam:       db,
			email:         "",
			username:      "a",
			expectedError: ErrUserInvalid,
		},
		{
			name:     "successful create",
			dbParam:  db,
			email:    "agent@example.com",
			username: "agent",
		},
		{
			name:          "duplicate email",
			dbParam:       db,
			email:         "agent@example.com",
			username:      "other",
			expectedError: ErrUserConflict,
		},
		{
			name:          "duplicate username",
			dbParam:       db,
			email:         "other@example.com",
			username:      "agent",
			expectedError: ErrUserConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			created, err := Create(tc.dbParam, nil, tc.email, tc.username, "secret", models.SystemUserID)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, created)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.username, created.Username)
				assert.True(t, created.VerifyPassword("secret"))
				require.NotNil(t, created.CreatedBy)
				assert.Equal(t, models.SystemUserID, *created.CreatedBy)
			}
		})
	}
}

func TestDeleteCascades(t *testing.T) {
	db := setupTestDB(t)

	tn := &models.Tenant{Domain: "homes.example.com", Code: "homes"}
	require.NoError(t, db.Create(tn).Error)

	u, err := Create(db, &tn.ID, "agent@example.com", "agent", "secret", models.SystemUserID)
	require.NoError(t, err)

	role := seedRole(t, db, "user")
	_, err = AssignRole(db, u.ID, role.ID, models.SystemUserID)
	require.NoError(t, err)

	grant := models.UserAbility{
		UserID:   u.ID,
		TenantID: tn.ID,
		Action:   "read",
		Subject:  "Listing",
	}
	require.NoError(t, db.Create(&grant).Error)

	require.NoError(t, Delete(db, u.ID))

	// assignments and overrides disappear with the user
	var urCount, uaCount int64
	db.Model(&models.UserRole{}).Where("user_id = ?", u.ID).Count(&urCount)
	db.Model(&models.UserAbility{}).Where("user_id = ?", u.ID).Count(&uaCount)
	assert.Zero(t, urCount)
	assert.Zero(t, uaCount)

	_, err = Get(db, u.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	// email and username are reusable afterwards
	_, err = Create(db, nil, "agent@example.com", "agent", "secret", models.SystemUserID)
	require.NoError(t, err)
}

func TestSystemUserImmutable(t *testing.T) {
	db := setupTestDB(t)

	require.ErrorIs(t, Delete(db, models.SystemUserID), ErrSystemUserImmutable)

	_, err := Update(db, models.SystemUserID, "x@example.com", false, nil, uuid.New())
	require.ErrorIs(t, err, ErrSystemUserImmutable)
}

func TestAssignRole(t *testing.T) {
	db := setupTestDB(t)

	u, err := Create(db, nil, "agent@example.com", "agent", "secret", models.SystemUserID)
	require.NoError(t, err)

	role := seedRole(t, db, "user")

	_, err = AssignRole(db, u.ID, role.ID, models.SystemUserID)
	require.NoError(t, err)

	// the pair is unique among live assignments
	_, err = AssignRole(db, u.ID, role.ID, models.SystemUserID)
	require.ErrorIs(t, err, ErrRoleAlreadyAssigned)

	roles, err := Roles(db, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "user", roles[0].Name)

	// revoking frees the pair for re-assignment
	require.NoError(t, RevokeRole(db, u.ID, role.ID))

	_, err = AssignRole(db, u.ID, role.ID, models.SystemUserID)
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	db := setupTestDB(t)

	u, err := Create(db, nil, "agent@example.com", "agent", "secret", models.SystemUserID)
	require.NoError(t, err)
	_, err = Create(db, nil, "other@example.com", "other", "secret", models.SystemUserID)
	require.NoError(t, err)

	// taking another live user's email conflicts
	_, err = Update(db, u.ID, "other@example.com", true, nil, models.SystemUserID)
	require.ErrorIs(t, err, ErrUserConflict)

	actor := uuid.New()
	updated, err := Update(db, u.ID, "agent@example.com", false, nil, actor)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, actor, *updated.UpdatedBy)
}
