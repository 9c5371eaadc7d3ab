// Package user provides the JSON endpoints for user administration and
// role assignment.
package user

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/controller/user"
	"github.com/openrealty/openrealty/internal/web/handler"
)

// Path is the base path for user management.
const Path = handler.APIPath + "/users"

// Service provides CRUD operations for users.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type createRequest struct {
	TenantID *uuid.UUID `json:"tenant_id"`
	Email    string     `json:"email" validate:"required,email"`
	Username string     `json:"username" validate:"required,min=3"`
	Password string     `json:"password" validate:"required,min=8"`
}

type updateRequest struct {
	TenantID *uuid.UUID `json:"tenant_id"`
	Email    string     `json:"email" validate:"required,email"`
	Active   bool       `json:"active"`
}

type roleRequest struct {
	RoleID uuid.UUID `json:"role_id" validate:"required"`
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
		authz.RequireAbility(authzService, authz.ActionList, authz.SubjectUser),
		s.List,
	)
	app.Post(Path,
		authz.RequireAbility(authzService, authz.ActionCreate, authz.SubjectUser),
		s.Create,
	)
	app.Get(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionRead, authz.SubjectUser),
		s.Get,
	)
	app.Put(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionUpdate, authz.SubjectUser),
		s.Update,
	)
	app.Delete(Path+"/:id",
		authz.RequireAbility(authzService, authz.ActionDelete, authz.SubjectUser),
		s.Delete,
	)
	app.Get(Path+"/:id/roles",
		authz.RequireAbility(authzService, authz.ActionRead, authz.SubjectUser),
		s.Roles,
	)
	app.Post(Path+"/:id/roles",
		authz.RequireAbility(authzService, authz.ActionUpdate, authz.SubjectUser),
		s.AssignRole,
	)
	app.Delete(Path+"/:id/roles/:roleID",
		authz.RequireAbility(authzService, authz.ActionUpdate, authz.SubjectUser),
		s.RevokeRole,
	)

	return nil
}

// List returns the live users of the caller's tenant.
func (s *Service) List(c *fiber.Ctx) error {
	sess, _ := authz.SessionFromCtx(c)

	tenantID := sess.TenantID()
	if tenantID == nil {
		return c.JSON([]any{})
	}

	users, err := user.ListByTenant(s.db, *tenantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return fiber.ErrInternalServerError
	}

	return c.JSON(users)
}

// Get returns one user.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	u, err := user.Get(s.db, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Msg("failed to load user")

		return fiber.ErrInternalServerError
	}

	return c.JSON(u)
}

// Create provisions a new local user.
func (s *Service) Create(c *fiber.Ctx) error {
	sess, _ := authz.SessionFromCtx(c)

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user payload")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	u, err := user.Create(s.db, req.TenantID, req.Email, req.Username, req.Password, sess.User.ID)
	if err != nil {
		if errors.Is(err, user.ErrUserConflict) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Msg("failed to create user")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(u)
}

// Update changes a user.
func (s *Service) Update(c *fiber.Ctx) error {
	sess, _ := authz.SessionFromCtx(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var req updateRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	u, err := user.Update(s.db, id, req.Email, req.Active, req.TenantID, sess.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, user.ErrSystemUserImmutable):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case errors.Is(err, user.ErrUserConflict):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Msg("failed to update user")

		return fiber.ErrInternalServerError
	}

	return c.JSON(u)
}

// Delete soft-deletes a user together with its assignments and grants.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	if err = user.Delete(s.db, id); err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, user.ErrSystemUserImmutable):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		}

		log.Error().Err(err).Msg("failed to delete user")

		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Roles returns the live roles assigned to a user.
func (s *Service) Roles(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	roles, err := user.Roles(s.db, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to load user roles")
		return fiber.ErrInternalServerError
	}

	return c.JSON(roles)
}

// AssignRole links a role to a user.
func (s *Service) AssignRole(c *fiber.Ctx) error {
	sess, _ := authz.SessionFromCtx(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var req roleRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role payload")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ur, err := user.AssignRole(s.db, id, req.RoleID, sess.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, user.ErrRoleAlreadyAssigned):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Msg("failed to assign role")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(ur)
}

// RevokeRole removes a role assignment from a user.
func (s *Service) RevokeRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	roleID, err := uuid.Parse(c.Params("roleID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}

	if err = user.RevokeRole(s.db, id, roleID); err != nil {
		log.Error().Err(err).Msg("failed to revoke role")
		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}
