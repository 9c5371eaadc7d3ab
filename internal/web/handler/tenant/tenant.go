// Package tenant provides the JSON endpoints for agency (tenant)
// administration.
package tenant

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
	"github.com/openrealty/openrealty/internal/db/controller/tenant"
	"github.com/openrealty/openrealty/internal/web/handler"
)

// Path is the base path for tenant management.
const Path = handler.APIPath + "/tenants"

// Service provides CRUD operations for tenants.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type tenantRequest struct {
	Domain   string            `json:"domain" validate:"required,fqdn"`
	Code     string            `json:"code" validate:"required,alphanum"`
	Active   bool              `json:"active"`
	Settings datatypes.JSONMap `json:"settings"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path,
		authz.RequireAbility(authzService, authz.ActionList, authz.SubjectTenant),
		s.List,
	)
	app.Post(Path,
		authz.RequireAbility(authzService, authz.ActionCreate, authz.SubjectTenant),
		s.Create,
	)
	app.Get(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionRead, authz.SubjectTenant),
		s.Get,
	)
	app.Put(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionUpdate, authz.SubjectTenant),
		s.Update,
	)
	app.Delete(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionDelete, authz.SubjectTenant),
		s.Delete,
	)

	return nil
}

// List returns all live tenants.
func (s *Service) List(c *fiber.Ctx) error {
	tenants, err := tenant.List(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list tenants")
		return fiber.ErrInternalServerError
	}

	return c.JSON(tenants)
}

// Get returns one tenant.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tenant id")
	}

	t, err := tenant.Get(s.db, id)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load tenant")

		return fiber.ErrInternalServerError
	}

	return c.JSON(t)
}

// Create provisions a new tenant.
func (s *Service) Create(c *fiber.Ctx) error {
	var req tenantRequest

	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tenant payload")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	t, err := tenant.Create(s.db, req.Domain, req.Code, req.Settings)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantConflict) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Msg("failed to create tenant")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(t)
}

// Update changes a tenant.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tenant id")
	}

	var req tenantRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tenant payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	t, err := tenant.Update(s.db, id, req.Domain, req.Code, req.Active, req.Settings)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, tenant.ErrTenantConflict):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Msg("failed to update tenant")

		return fiber.ErrInternalServerError
	}

	return c.JSON(t)
}

// Delete soft-deletes a tenant and detaches its users.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tenant id")
	}

	if err = tenant.Delete(s.db, id); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to delete tenant")

		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}
