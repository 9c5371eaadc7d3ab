// Package role provides the JSON endpoints for role and ability
// administration.
package role

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
	"github.com/openrealty/openrealty/internal/db/controller/role"
	"github.com/openrealty/openrealty/internal/web/handler"
)

// Path is the base path for role management.
const Path = handler.APIPath + "/roles"

// Service provides CRUD operations for roles and their abilities.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	guard     *authz.Guard
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
}

type abilityRequest struct {
	Action     string            `json:"action" validate:"required"`
	Subject    string            `json:"subject" validate:"required"`
	Conditions datatypes.JSONMap `json:"conditions"`
	Inverted   bool              `json:"inverted"`
	Priority   int               `json:"priority"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.guard = authzService.Guard()
	s.validator = validator.New()

	app.Get(Path,
		authz.RequireAbility(authzService, authz.ActionList, authz.SubjectRole),
		s.List,
	)
	app.Post(Path,
		authz.RequireAbility(authzService, authz.ActionCreate, authz.SubjectRole),
		s.Create,
	)
	app.Get(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionRead, authz.SubjectRole),
		s.Get,
	)
	app.Delete(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionDelete, authz.SubjectRole),
		s.Delete,
	)
	app.Get(Path+"/:id/abilities",
		authz.RequireAbility(authzService, authz.ActionRead, authz.SubjectAbility),
		s.Abilities,
	)
	app.Post(Path+"/:id/abilities",
		authz.RequireAbility(authzService, authz.ActionCreate, authz.SubjectAbility),
		s.AddAbility,
	)
	app.Delete(Path+"/:id/abilities/:abilityID",
		authz.RequireAbility(authzService, authz.ActionDelete, authz.SubjectAbility),
		s.RemoveAbility,
	)

	return nil
}

// List returns all live roles.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := role.List(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
		return fiber.ErrInternalServerError
	}

	return c.JSON(roles)
}

// Get returns one role.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}

	r, err := role.Get(s.db, id)
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load role")

		return fiber.ErrInternalServerError
	}

	return c.JSON(r)
}

// Create adds a new role.
func (s *Service) Create(c *fiber.Ctx) error {
	var req roleRequest

	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role payload")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	r, err := role.Create(s.db, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, role.ErrRoleConflict) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Msg("failed to create role")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(r)
}

// Delete removes a role together with its abilities and assignments.
// Protected roles refuse deletion.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}

	if err = role.Delete(s.db, s.guard, id); err != nil {
		switch {
		case errors.Is(err, role.ErrRoleNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, authz.ErrProtectedRole):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		}

		log.Error().Err(err).Msg("failed to delete role")

		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Abilities returns the permission rules of a role, highest priority first.
func (s *Service) Abilities(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}

	abilities, err := role.Abilities(s.db, id)
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load abilities")

		return fiber.ErrInternalServerError
	}

	return c.JSON(abilities)
}

// AddAbility attaches a permission rule to a role.
func (s *Service) AddAbility(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}

	var req abilityRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid ability payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	a, err := role.AddAbility(s.db, id, req.Action, req.Subject, req.Conditions, req.Inverted, req.Priority)
	if err != nil {
		switch {
		case errors.Is(err, role.ErrRoleNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, role.ErrAbilityInvalid):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Msg("failed to add ability")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(a)
}

// RemoveAbility detaches a permission rule from a role. Protected roles
// refuse the removal.
func (s *Service) RemoveAbility(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}

	abilityID, err := uuid.Parse(c.Params("abilityID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid ability id")
	}

	if err = role.RemoveAbility(s.db, s.guard, id, abilityID); err != nil {
		switch {
		case errors.Is(err, role.ErrRoleNotFound), errors.Is(err, role.ErrAbilityNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, authz.ErrProtectedRole):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		}

		log.Error().Err(err).Msg("failed to remove ability")

		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}
