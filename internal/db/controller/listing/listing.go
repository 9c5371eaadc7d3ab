// Package listing provides tenant-scoped CRUD and search for real-estate
// listings. Search accepts the condition groups produced by the
// permission resolver and compiles them into SQL, so callers only ever
// see rows their rules allow.
package listing

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/db/models"
)

var (
	// ErrListingNotFound is returned when a listing is not found.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingInvalid is returned when required fields are missing or
	// the kind is not a known value.
	ErrListingInvalid = errors.New("listing title, kind and status are required")
	// ErrBadFilterField is returned when a rule condition references a
	// field that cannot be filtered on. The request must fail closed.
	ErrBadFilterField = errors.New("filter references unknown listing field")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// filterColumns is the allowlist of rule condition keys that Search can
// compile into SQL. Anything else aborts the query.
var filterColumns = map[string]string{
	"id":        "id",
	"tenant_id": "tenant_id",
	"agent_id":  "agent_id",
	"kind":      "kind",
	"status":    "status",
	"city":      "city",
	"currency":  "currency",
	"price":     "price",
	"bedrooms":  "bedrooms",
	"bathrooms": "bathrooms",
}

// SearchParams narrows a listing search beyond the permission filter.
// Zero values mean "no constraint".
type SearchParams struct {
	City     string
	Kind     models.ListingKind
	Status   string
	MinPrice int64
	MaxPrice int64
	Limit    int
	Offset   int
}

// Get retrieves a live listing by ID within a tenant.
func Get(db *gorm.DB, tenantID, id uuid.UUID) (*models.Listing, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var l models.Listing
	result := db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&l)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, result.Error
	}

	return &l, nil
}

// Create stores a new listing for a tenant.
func Create(db *gorm.DB, l *models.Listing) (*models.Listing, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if err := validate(l); err != nil {
		return nil, err
	}

	if err := db.Create(l).Error; err != nil {
		return nil, err
	}

	return l, nil
}

// Update replaces the mutable fields of a listing. The tenant binding
// never changes.
func Update(db *gorm.DB, tenantID uuid.UUID, l *models.Listing) (*models.Listing, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if err := validate(l); err != nil {
		return nil, err
	}

	existing, err := Get(db, tenantID, l.ID)
	if err != nil {
		return nil, err
	}

	existing.AgentID = l.AgentID
	existing.Title = l.Title
	existing.Address = l.Address
	existing.City = l.City
	existing.Kind = l.Kind
	existing.Status = l.Status
	existing.Price = l.Price
	existing.Currency = l.Currency
	existing.Bedrooms = l.Bedrooms
	existing.Bathrooms = l.Bathrooms
	existing.AreaSqm = l.AreaSqm
	existing.Attrs = l.Attrs

	if err := db.Save(existing).Error; err != nil {
		return nil, err
	}

	return existing, nil
}

// Delete soft-deletes a listing within a tenant.
func Delete(db *gorm.DB, tenantID, id uuid.UUID) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, tenantID, id); err != nil {
		return err
	}

	return db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.Listing{}).Error
}

// Search returns the tenant's live listings matching the search params
// and the permission filter. The filter is the OR of its condition
// groups; each group is the AND of its field predicates. An empty filter
// means the caller is unrestricted inside the tenant.
func Search(
	db *gorm.DB,
	tenantID uuid.UUID,
	params SearchParams,
	filter []authz.Conditions,
) ([]models.Listing, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	q := db.Model(&models.Listing{}).Where("tenant_id = ?", tenantID)

	if params.City != "" {
		q = q.Where("city = ?", params.City)
	}
	if params.Kind != "" {
		q = q.Where("kind = ?", params.Kind)
	}
	if params.Status != "" {
		q = q.Where("status = ?", params.Status)
	}
	if params.MinPrice > 0 {
		q = q.Where("price >= ?", params.MinPrice)
	}
	if params.MaxPrice > 0 {
		q = q.Where("price <= ?", params.MaxPrice)
	}

	scope, err := compileFilter(db, filter)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		q = q.Where(scope)
	}

	q = q.Order("created_at DESC")
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}

	var listings []models.Listing
	if err := q.Find(&listings).Error; err != nil {
		return nil, err
	}

	return listings, nil
}

// compileFilter turns resolver condition groups into a gorm scope. A nil
// return with nil error means no restriction. Unknown fields fail the
// whole query rather than silently widening it.
func compileFilter(db *gorm.DB, filter []authz.Conditions) (*gorm.DB, error) {
	if len(filter) == 0 {
		return nil, nil
	}

	var scope *gorm.DB
	for _, group := range filter {
		clause := db.Session(&gorm.Session{NewDB: true})
		for field, want := range group {
			column, ok := filterColumns[field]
			if !ok {
				return nil, ErrBadFilterField
			}
			if values, ok := want.([]any); ok {
				clause = clause.Where(column+" IN ?", values)
			} else {
				clause = clause.Where(column+" = ?", want)
			}
		}
		if scope == nil {
			scope = clause
		} else {
			scope = scope.Or(clause)
		}
	}

	return scope, nil
}

func validate(l *models.Listing) error {
	if l == nil || l.Title == "" {
		return ErrListingInvalid
	}
	if l.Kind != models.ListingKindSale && l.Kind != models.ListingKindRent {
		return ErrListingInvalid
	}
	switch l.Status {
	case models.ListingStatusDraft, models.ListingStatusPublished, models.ListingStatusArchived:
	default:
		return ErrListingInvalid
	}

	return nil
}
