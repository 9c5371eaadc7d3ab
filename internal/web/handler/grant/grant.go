// Package grant provides the JSON endpoints for per-user permission
// overrides. Grants are always issued inside the caller's tenant.
package grant

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
	"github.com/openrealty/openrealty/internal/db/controller/grant"
	"github.com/openrealty/openrealty/internal/web/handler"
)

// Path is the base path for grant management.
const Path = handler.APIPath + "/grants"

// Service provides CRUD operations for grants.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type grantRequest struct {
	UserID        uuid.UUID         `json:"user_id" validate:"required"`
	Action        string            `json:"action" validate:"required"`
	Subject       string            `json:"subject" validate:"required"`
	Conditions    datatypes.JSONMap `json:"conditions"`
	Inverted      bool              `json:"inverted"`
	RoleContextID *uuid.UUID        `json:"role_context_id"`
	Priority      int               `json:"priority"`
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
		authz.RequireAbility(authzService, authz.ActionList, authz.SubjectUserAbility),
		s.List,
	)
	app.Post(Path,
		authz.RequireAbility(authzService, authz.ActionCreate, authz.SubjectUserAbility),
		s.Create,
	)
	app.Put(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionUpdate, authz.SubjectUserAbility),
		s.Update,
	)
	app.Delete(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionDelete, authz.SubjectUserAbility),
		s.Delete,
	)

	return nil
}

// tenantOf resolves the tenant the request operates in. Grants have no
// meaning outside a tenant.
func tenantOf(c *fiber.Ctx) (uuid.UUID, error) {
	sess, _ := authz.SessionFromCtx(c)

	tenantID := sess.TenantID()
	if tenantID == nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "caller has no tenant")
	}

	return *tenantID, nil
}

// List returns the grants of the caller's tenant, optionally narrowed to
// one user via the user_id query parameter.
func (s *Service) List(c *fiber.Ctx) error {
	tenantID, err := tenantOf(c)
	if err != nil {
		return err
	}

	if rawUserID := c.Query("user_id"); rawUserID != "" {
		userID, errParse := uuid.Parse(rawUserID)
		if errParse != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
		}

		grants, errList := grant.ListByUser(s.db, userID, tenantID)
		if errList != nil {
			log.Error().Err(errList).Msg("failed to list grants")
			return fiber.ErrInternalServerError
		}

		return c.JSON(grants)
	}

	grants, err := grant.ListByTenant(s.db, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list grants")
		return fiber.ErrInternalServerError
	}

	return c.JSON(grants)
}

// Create issues a grant inside the caller's tenant.
func (s *Service) Create(c *fiber.Ctx) error {
	tenantID, err := tenantOf(c)
	if err != nil {
		return err
	}

	var req grantRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid grant payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ua, err := grant.Create(s.db, req.UserID, tenantID,
		req.Action, req.Subject, req.Conditions, req.Inverted, req.RoleContextID, req.Priority)
	if err != nil {
		switch {
		case errors.Is(err, grant.ErrGrantUserNotFound),
			errors.Is(err, grant.ErrGrantTenantNotFound),
			errors.Is(err, grant.ErrGrantRoleContextNotFound):
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, grant.ErrGrantInvalid):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Msg("failed to create grant")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(ua)
}

// Update modifies the rule fields of a grant in the caller's tenant.
func (s *Service) Update(c *fiber.Ctx) error {
	tenantID, err := tenantOf(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid grant id")
	}

	existing, err := grant.Get(s.db, id)
	if err != nil {
		if errors.Is(err, grant.ErrGrantNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load grant")

		return fiber.ErrInternalServerError
	}

	// foreign-tenant grants stay invisible
	if existing.TenantID != tenantID {
		return fiber.ErrNotFound
	}

	var req grantRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid grant payload")
	}

	ua, err := grant.Update(s.db, id,
		req.Action, req.Subject, req.Conditions, req.Inverted, req.RoleContextID, req.Priority)
	if err != nil {
		switch {
		case errors.Is(err, grant.ErrGrantInvalid):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, grant.ErrGrantRoleContextNotFound):
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		log.Error().Err(err).Msg("failed to update grant")

		return fiber.ErrInternalServerError
	}

	return c.JSON(ua)
}

// Delete revokes a grant in the caller's tenant.
func (s *Service) Delete(c *fiber.Ctx) error {
	tenantID, err := tenantOf(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid grant id")
	}

	existing, err := grant.Get(s.db, id)
	if err != nil {
		if errors.Is(err, grant.ErrGrantNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load grant")

		return fiber.ErrInternalServerError
	}

	if existing.TenantID != tenantID {
		return fiber.ErrNotFound
	}

	if err = grant.Delete(s.db, id); err != nil {
		log.Error().Err(err).Msg("failed to delete grant")
		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}
