package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingKind distinguishes sale from rental listings.
type ListingKind string

const (
	// ListingKindSale is a property offered for sale.
	ListingKindSale ListingKind = "sale"
	// ListingKindRent is a property offered for rent.
	ListingKindRent ListingKind = "rent"
)

// Listing statuses.
const (
	// ListingStatusDraft is a listing not yet visible in search.
	ListingStatusDraft = "draft"
	// ListingStatusPublished is a listing visible in search.
	ListingStatusPublished = "published"
	// ListingStatusArchived is a listing withdrawn from search.
	ListingStatusArchived = "archived"
)

// Listing is a tenant-scoped real-estate listing, the primary searchable
// resource of the platform and the canonical authorization subject
// ("Listing") in ability rules.
type Listing struct {
	// ID is the unique identifier for the listing.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// TenantID is the owning tenant (CASCADE on tenant delete).
	TenantID uuid.UUID `gorm:"type:char(36);not null;index"`
	// Tenant is the associated tenant.
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE"`
	// AgentID is the user responsible for the listing.
	AgentID *uuid.UUID `gorm:"type:char(36);index"`
	// Title is the short display title.
	Title string `gorm:"size:255;not null"`
	// Address is the street address.
	Address string `gorm:"size:255"`
	// City is the city, used as a search facet.
	City string `gorm:"size:100;index"`
	// Kind is sale or rent.
	Kind ListingKind `gorm:"type:varchar(10);not null;default:'sale'"`
	// Status is the publication state (draft, published, archived).
	Status string `gorm:"size:20;not null;default:'draft';index"`
	// Price is the asking price or monthly rent in minor units.
	Price int64 `gorm:"not null;default:0"`
	// Currency is the ISO 4217 currency code for Price.
	Currency string `gorm:"size:3;not null;default:'EUR'"`
	// Bedrooms is the bedroom count.
	Bedrooms int
	// Bathrooms is the bathroom count.
	Bathrooms int
	// AreaSqm is the floor area in square meters.
	AreaSqm float64
	// Attrs holds free-form searchable attributes (energy label, amenities).
	Attrs datatypes.JSONMap
	// CreatedAt is the timestamp when the listing was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the listing was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the Listing model.
func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate assigns a random UUID when none was set by the caller.
func (l *Listing) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	return nil
}

// Fields returns the listing as an attribute map for rule condition
// matching. Keys follow the column naming of the stored rules.
func (l *Listing) Fields() map[string]any {
	f := map[string]any{
		"id":        l.ID.String(),
		"tenant_id": l.TenantID.String(),
		"kind":      string(l.Kind),
		"status":    l.Status,
		"city":      l.City,
		"currency":  l.Currency,
		"price":     l.Price,
		"bedrooms":  l.Bedrooms,
		"bathrooms": l.Bathrooms,
	}

	if l.AgentID != nil {
		f["agent_id"] = l.AgentID.String()
	}

	return f
}
