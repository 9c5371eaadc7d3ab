// Package listing provides the JSON endpoints for real-estate listings.
// Search results are narrowed by the caller's permission filter, and
// instance operations re-check the rules against the concrete row.
package listing

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/controller/listing"
	"github.com/openrealty/openrealty/internal/db/models"
	"github.com/openrealty/openrealty/internal/web/handler"
	"github.com/openrealty/openrealty/internal/web/session"
)

// Path is the base path for listings.
const Path = handler.APIPath + "/listings"

// Service provides CRUD and search for listings.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type listingRequest struct {
	AgentID   *uuid.UUID         `json:"agent_id"`
	Title     string             `json:"title" validate:"required"`
	Address   string             `json:"address"`
	City      string             `json:"city"`
	Kind      models.ListingKind `json:"kind" validate:"required,oneof=sale rent"`
	Status    string             `json:"status" validate:"required,oneof=draft published archived"`
	Price     int64              `json:"price" validate:"gte=0"`
	Currency  string             `json:"currency" validate:"omitempty,len=3"`
	Bedrooms  int                `json:"bedrooms"`
	Bathrooms int                `json:"bathrooms"`
	AreaSqm   float64            `json:"area_sqm"`
	Attrs     datatypes.JSONMap  `json:"attrs"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.authz = authzService
	s.validator = validator.New()

	// the collection route carries its own filter logic, instance routes
	// re-check against the loaded row
	app.Get(Path, s.Search)
	app.Post(Path,
		authz.RequireAbility(authzService, authz.ActionCreate, authz.SubjectListing),
		s.Create,
	)
	app.Get(Path+"/:id", s.Get)
	app.Put(Path+"/:id", s.Update)
	app.Delete(Path+"/:id", s.Delete)

	return nil
}

func (s *Service) sessionAndTenant(c *fiber.Ctx) (*session.Data, uuid.UUID, error) {
	sess, ok := authz.SessionFromCtx(c)
	if !ok {
		return nil, uuid.Nil, fiber.ErrUnauthorized
	}

	tenantID := sess.TenantID()
	if tenantID == nil {
		return nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "caller has no tenant")
	}

	return sess, *tenantID, nil
}

// Search lists the tenant's listings the caller may see. The permission
// filter of the caller's rules is compiled into the query, so denied rows
// never leave the database.
func (s *Service) Search(c *fiber.Ctx) error {
	sess, tenantID, err := s.sessionAndTenant(c)
	if err != nil {
		return err
	}

	dec, filter, err := s.authz.Filter(sess.User.ID, &tenantID, sess.ActiveRoleID,
		authz.ActionList, authz.SubjectListing)
	if err != nil {
		log.Error().Err(err).Msg("authorization evaluation failed")
		return fiber.ErrInternalServerError
	}

	if !dec.Allowed {
		return fiber.ErrForbidden
	}

	params := listing.SearchParams{
		City:     c.Query("city"),
		Kind:     models.ListingKind(c.Query("kind")),
		Status:   c.Query("status"),
		MinPrice: int64(c.QueryInt("min_price")),
		MaxPrice: int64(c.QueryInt("max_price")),
		Limit:    c.QueryInt("limit", 50),
		Offset:   c.QueryInt("offset"),
	}

	listings, err := listing.Search(s.db, tenantID, params, filter)
	if err != nil {
		if errors.Is(err, listing.ErrBadFilterField) {
			log.Warn().Err(err).Msg("permission filter references unfilterable field")
			return fiber.ErrForbidden
		}

		log.Error().Err(err).Msg("failed to search listings")

		return fiber.ErrInternalServerError
	}

	return c.JSON(listings)
}

// Get returns one listing after checking the caller's rules against the
// concrete row.
func (s *Service) Get(c *fiber.Ctx) error {
	sess, tenantID, err := s.sessionAndTenant(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing id")
	}

	l, err := listing.Get(s.db, tenantID, id)
	if err != nil {
		if errors.Is(err, listing.ErrListingNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load listing")

		return fiber.ErrInternalServerError
	}

	if err = s.allow(sess, tenantID, authz.ActionRead, l); err != nil {
		return err
	}

	return c.JSON(l)
}

// Create stores a new listing.
func (s *Service) Create(c *fiber.Ctx) error {
	_, tenantID, err := s.sessionAndTenant(c)
	if err != nil {
		return err
	}

	var req listingRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	l := req.toModel()
	l.TenantID = tenantID

	created, err := listing.Create(s.db, l)
	if err != nil {
		if errors.Is(err, listing.ErrListingInvalid) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Msg("failed to create listing")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// Update changes a listing after checking the caller's rules against the
// stored row.
func (s *Service) Update(c *fiber.Ctx) error {
	sess, tenantID, err := s.sessionAndTenant(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing id")
	}

	existing, err := listing.Get(s.db, tenantID, id)
	if err != nil {
		if errors.Is(err, listing.ErrListingNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load listing")

		return fiber.ErrInternalServerError
	}

	// conditions are checked against the row as stored, not the payload
	if err = s.allow(sess, tenantID, authz.ActionUpdate, existing); err != nil {
		return err
	}

	var req listingRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	l := req.toModel()
	l.ID = id

	updated, err := listing.Update(s.db, tenantID, l)
	if err != nil {
		if errors.Is(err, listing.ErrListingInvalid) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Msg("failed to update listing")

		return fiber.ErrInternalServerError
	}

	return c.JSON(updated)
}

// Delete removes a listing after checking the caller's rules against the
// stored row.
func (s *Service) Delete(c *fiber.Ctx) error {
	sess, tenantID, err := s.sessionAndTenant(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing id")
	}

	existing, err := listing.Get(s.db, tenantID, id)
	if err != nil {
		if errors.Is(err, listing.ErrListingNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load listing")

		return fiber.ErrInternalServerError
	}

	if err = s.allow(sess, tenantID, authz.ActionDelete, existing); err != nil {
		return err
	}

	if err = listing.Delete(s.db, tenantID, id); err != nil {
		log.Error().Err(err).Msg("failed to delete listing")
		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// allow answers an instance-level authorization question for a loaded row.
func (s *Service) allow(sess *session.Data, tenantID uuid.UUID, action string, l *models.Listing) error {
	dec, err := s.authz.Can(sess.User.ID, &tenantID, sess.ActiveRoleID,
		action, authz.SubjectListing, l.Fields())
	if err != nil {
		log.Error().Err(err).Msg("authorization evaluation failed")
		return fiber.ErrInternalServerError
	}

	if !dec.Allowed {
		log.Warn().
			Str("user_id", sess.User.ID.String()).
			Str("listing_id", l.ID.String()).
			Str("action", action).
			Str("reason", dec.Reason).
			Msg("listing request denied")

		return fiber.ErrForbidden
	}

	return nil
}

func (r *listingRequest) toModel() *models.Listing {
	currency := r.Currency
	if currency == "" {
		currency = "EUR"
	}

	return &models.Listing{
		AgentID:   r.AgentID,
		Title:     r.Title,
		Address:   r.Address,
		City:      r.City,
		Kind:      r.Kind,
		Status:    r.Status,
		Price:     r.Price,
		Currency:  currency,
		Bedrooms:  r.Bedrooms,
		Bathrooms: r.Bathrooms,
		AreaSqm:   r.AreaSqm,
		Attrs:     r.Attrs,
	}
}
