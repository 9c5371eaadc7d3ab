package grant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.UserAbility{},
	)
	require.NoError(t, err)

	return db
}

func seedUserAndTenant(t *testing.T, db *gorm.DB) (uuid.UUID, uuid.UUID) {
	t.Helper()

	tenant := models.Tenant{Domain: "acme.example.com", Code: "acme"}
	require.NoError(t, db.Create(&tenant).Error)

	user := models.User{ID: uuid.New(), Email: "agent@acme.example.com", Username: "agent"}
	require.NoError(t, db.Create(&user).Error)

	return user.ID, tenant.ID
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)
	userID, tenantID := seedUserAndTenant(t, db)

	tests := []struct {
		name     string
		userID   uuid.UUID
		tenantID uuid.UUID
		action   string
		subject  string
		priority int
		wantErr  error
	}{
		{
			name:     "valid grant",
			userID:   userID,
			tenantID: tenantID,
			action:   "update",
			subject:  "Listing",
			priority: 3,
		},
		{
			name:     "empty action",
			userID:   userID,
			tenantID: tenantID,
			subject:  "Listing",
			wantErr:  ErrGrantInvalid,
		},
		{
			name:     "empty subject",
			userID:   userID,
			tenantID: tenantID,
			action:   "update",
			wantErr:  ErrGrantInvalid,
		},
		{
			name:     "unknown user",
			userID:   uuid.New(),
			tenantID: tenantID,
			action:   "update",
			subject:  "Listing",
			wantErr:  ErrGrantUserNotFound,
		},
		{
			name:     "unknown tenant",
			userID:   userID,
			tenantID: uuid.New(),
			action:   "update",
			subject:  "Listing",
			wantErr:  ErrGrantTenantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ua, err := Create(db, tt.userID, tt.tenantID, tt.action, tt.subject, nil, false, nil, tt.priority)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, ua.ID)
			assert.Equal(t, tt.priority, ua.Priority)
		})
	}
}

func TestCreateRoleContext(t *testing.T) {
	db := setupTestDB(t)
	userID, tenantID := seedUserAndTenant(t, db)

	missing := uuid.New()
	_, err := Create(db, userID, tenantID, "read", "Listing", nil, false, &missing, 1)
	require.ErrorIs(t, err, ErrGrantRoleContextNotFound)

	role := models.Role{Name: "agent"}
	require.NoError(t, db.Create(&role).Error)

	ua, err := Create(db, userID, tenantID, "read", "Listing", nil, false, &role.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, ua.RoleContextID)
	assert.Equal(t, role.ID, *ua.RoleContextID)
}

func TestPriorityClamp(t *testing.T) {
	db := setupTestDB(t)
	userID, tenantID := seedUserAndTenant(t, db)

	ua, err := Create(db, userID, tenantID, "read", "Listing", nil, false, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ua.Priority)
}

func TestListByUser(t *testing.T) {
	db := setupTestDB(t)
	userID, tenantID := seedUserAndTenant(t, db)

	otherTenant := models.Tenant{Domain: "beta.example.com", Code: "beta"}
	require.NoError(t, db.Create(&otherTenant).Error)

	low, err := Create(db, userID, tenantID, "read", "Listing", nil, false, nil, 1)
	require.NoError(t, err)
	high, err := Create(db, userID, tenantID, "update", "Listing",
		datatypes.JSONMap{"status": "draft"}, true, nil, 5)
	require.NoError(t, err)
	_, err = Create(db, userID, otherTenant.ID, "read", "Listing", nil, false, nil, 1)
	require.NoError(t, err)

	grants, err := ListByUser(db, userID, tenantID)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	// ordered by priority, highest first; the other tenant's grant excluded
	assert.Equal(t, high.ID, grants[0].ID)
	assert.Equal(t, low.ID, grants[1].ID)
}

func TestUpdate(t *testing.T) {
	db := setupTestDB(t)
	userID, tenantID := seedUserAndTenant(t, db)

	role := models.Role{Name: "agent"}
	require.NoError(t, db.Create(&role).Error)

	ua, err := Create(db, userID, tenantID, "read", "Listing", nil, true, &role.ID, 5)
	require.NoError(t, err)

	// clearing the role context and the inverted flag must stick
	got, err := Update(db, ua.ID, "update", "Listing", nil, false, nil, 2)
	require.NoError(t, err)
	assert.False(t, got.Inverted)
	assert.Nil(t, got.RoleContextID)
	assert.Equal(t, 2, got.Priority)

	var reloaded models.UserAbility
	require.NoError(t, db.First(&reloaded, "id = ?", ua.ID).Error)
	assert.False(t, reloaded.Inverted)
	assert.Nil(t, reloaded.RoleContextID)
	assert.Equal(t, "update", reloaded.Action)

	_, err = Update(db, uuid.New(), "read", "Listing", nil, false, nil, 1)
	require.ErrorIs(t, err, ErrGrantNotFound)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	userID, tenantID := seedUserAndTenant(t, db)

	ua, err := Create(db, userID, tenantID, "read", "Listing", nil, false, nil, 1)
	require.NoError(t, err)

	require.NoError(t, Delete(db, ua.ID))
	_, err = Get(db, ua.ID)
	require.ErrorIs(t, err, ErrGrantNotFound)
	require.ErrorIs(t, Delete(db, ua.ID), ErrGrantNotFound)
}
