package listing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
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
		&models.Listing{},
	)
	require.NoError(t, err)

	return db
}

func seedTenant(t *testing.T, db *gorm.DB, domain, code string) uuid.UUID {
	t.Helper()

	tenant := models.Tenant{Domain: domain, Code: code}
	require.NoError(t, db.Create(&tenant).Error)

	return tenant.ID
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)
	tenantID := seedTenant(t, db, "acme.example.com", "acme")

	tests := []struct {
		name    string
		listing models.Listing
		wantErr error
	}{
		{
			name: "valid sale listing",
			listing: models.Listing{
				TenantID: tenantID,
				Title:    "Sunny 3-bedroom house",
				City:     "Lisbon",
				Kind:     models.ListingKindSale,
				Status:   models.ListingStatusDraft,
				Price:    35000000,
			},
		},
		{
			name: "missing title",
			listing: models.Listing{
				TenantID: tenantID,
				Kind:     models.ListingKindRent,
				Status:   models.ListingStatusDraft,
			},
			wantErr: ErrListingInvalid,
		},
		{
			name: "unknown kind",
			listing: models.Listing{
				TenantID: tenantID,
				Title:    "Office space",
				Kind:     "lease",
				Status:   models.ListingStatusDraft,
			},
			wantErr: ErrListingInvalid,
		},
		{
			name: "unknown status",
			listing: models.Listing{
				TenantID: tenantID,
				Title:    "Office space",
				Kind:     models.ListingKindRent,
				Status:   "pending",
			},
			wantErr: ErrListingInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Create(db, &tt.listing)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestGetTenantScoped(t *testing.T) {
	db := setupTestDB(t)
	tenantID := seedTenant(t, db, "acme.example.com", "acme")
	otherID := seedTenant(t, db, "beta.example.com", "beta")

	l, err := Create(db, &models.Listing{
		TenantID: tenantID,
		Title:    "City apartment",
		Kind:     models.ListingKindRent,
		Status:   models.ListingStatusPublished,
	})
	require.NoError(t, err)

	got, err := Get(db, tenantID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	// another tenant must not see it, even with the right ID
	_, err = Get(db, otherID, l.ID)
	require.ErrorIs(t, err, ErrListingNotFound)
}

func TestUpdate(t *testing.T) {
	db := setupTestDB(t)
	tenantID := seedTenant(t, db, "acme.example.com", "acme")

	l, err := Create(db, &models.Listing{
		TenantID: tenantID,
		Title:    "City apartment",
		Kind:     models.ListingKindRent,
		Status:   models.ListingStatusDraft,
		Price:    120000,
	})
	require.NoError(t, err)

	l.Status = models.ListingStatusPublished
	l.Price = 135000
	got, err := Update(db, tenantID, l)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusPublished, got.Status)
	assert.Equal(t, int64(135000), got.Price)

	missing := models.Listing{
		ID:     uuid.New(),
		Title:  "Ghost",
		Kind:   models.ListingKindSale,
		Status: models.ListingStatusDraft,
	}
	_, err = Update(db, tenantID, &missing)
	require.ErrorIs(t, err, ErrListingNotFound)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	tenantID := seedTenant(t, db, "acme.example.com", "acme")

	l, err := Create(db, &models.Listing{
		TenantID: tenantID,
		Title:    "City apartment",
		Kind:     models.ListingKindRent,
		Status:   models.ListingStatusDraft,
	})
	require.NoError(t, err)

	require.NoError(t, Delete(db, tenantID, l.ID))
	_, err = Get(db, tenantID, l.ID)
	require.ErrorIs(t, err, ErrListingNotFound)
	require.ErrorIs(t, Delete(db, tenantID, l.ID), ErrListingNotFound)
}

func TestSearch(t *testing.T) {
	db := setupTestDB(t)
	tenantID := seedTenant(t, db, "acme.example.com", "acme")
	otherID := seedTenant(t, db, "beta.example.com", "beta")

	agentID := uuid.New()
	seed := []models.Listing{
		{TenantID: tenantID, Title: "Lisbon flat", City: "Lisbon", Kind: models.ListingKindRent, Status: models.ListingStatusPublished, Price: 150000, AgentID: &agentID},
		{TenantID: tenantID, Title: "Lisbon house", City: "Lisbon", Kind: models.ListingKindSale, Status: models.ListingStatusPublished, Price: 42000000},
		{TenantID: tenantID, Title: "Porto draft", City: "Porto", Kind: models.ListingKindSale, Status: models.ListingStatusDraft, Price: 28000000},
		{TenantID: otherID, Title: "Foreign listing", City: "Lisbon", Kind: models.ListingKindRent, Status: models.ListingStatusPublished, Price: 90000},
	}
	for i := range seed {
		_, err := Create(db, &seed[i])
		require.NoError(t, err)
	}

	t.Run("tenant scope", func(t *testing.T) {
		got, err := Search(db, tenantID, SearchParams{}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("params narrow the result", func(t *testing.T) {
		got, err := Search(db, tenantID, SearchParams{City: "Lisbon", Kind: models.ListingKindSale}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Lisbon house", got[0].Title)
	})

	t.Run("single condition group", func(t *testing.T) {
		got, err := Search(db, tenantID, SearchParams{}, []authz.Conditions{
			{"status": "published", "city": "Lisbon"},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("groups combine as alternatives", func(t *testing.T) {
		got, err := Search(db, tenantID, SearchParams{}, []authz.Conditions{
			{"city": "Porto"},
			{"agent_id": agentID.String()},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("membership condition", func(t *testing.T) {
		got, err := Search(db, tenantID, SearchParams{}, []authz.Conditions{
			{"status": []any{"draft", "archived"}},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Porto draft", got[0].Title)
	})

	t.Run("unknown filter field fails closed", func(t *testing.T) {
		_, err := Search(db, tenantID, SearchParams{}, []authz.Conditions{
			{"owner": "someone"},
		})
		require.ErrorIs(t, err, ErrBadFilterField)
	})
}
