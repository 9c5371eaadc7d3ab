package login

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/auth"
	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/controller/user"
	"github.com/openrealty/openrealty/internal/web/handler"
	"github.com/openrealty/openrealty/internal/web/session"
)

const (
	// Path is the login endpoint.
	Path = handler.APIPath + "/login"

	// LogoutPath is the logout endpoint.
	LogoutPath = handler.APIPath + "/logout"

	// SessionPath is the session introspection and role-switch endpoint.
	SessionPath = handler.APIPath + "/session"
)

// Service is the login handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	local     *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the login handler.
var Handler = Service{}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type roleSwitchRequest struct {
	RoleID *uuid.UUID `json:"role_id"`
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, _ *authz.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.db = db
	s.cfg = cfg
	s.local = auth.NewLocalProvider(db)
	s.validator = validator.New()

	app.Post(Path, s.Login)
	app.Post(LogoutPath, s.Logout)
	app.Get(SessionPath, s.Session)
	app.Post(SessionPath+"/role", s.SwitchRole)

	return nil
}

// Login authenticates against the local database and opens a session.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest

	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	authenticated, err := s.local.Authenticate(req.Username, req.Password)
	if err != nil {
		log.Warn().Str("username", req.Username).Err(err).Msg("login rejected")

		// one answer for unknown user, bad password and disabled account
		return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidCredentials.Error())
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return fiber.ErrInternalServerError
	}

	userSession := &session.Data{
		User: *authenticated,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return fiber.ErrInternalServerError
	}

	s.setSessionCookie(c, sessionID)

	log.Info().Str("username", authenticated.Username).Msg("user logged in")

	return c.JSON(sessionResponse(userSession))
}

// Logout destroys the session.
func (s *Service) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(session.CookieName)
	if sessionID != "" {
		if err := session.Destroy(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// Session returns the logged-in principal and its current role context.
func (s *Service) Session(c *fiber.Ctx) error {
	sess, ok := authz.SessionFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	return c.JSON(sessionResponse(sess))
}

// SwitchRole changes the active role of the session. The role must be one
// of the user's assigned live roles; a null role clears the context.
func (s *Service) SwitchRole(c *fiber.Ctx) error {
	sess, ok := authz.SessionFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req roleSwitchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	if req.RoleID != nil {
		roles, err := user.Roles(s.db, sess.User.ID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load user roles")
			return fiber.ErrInternalServerError
		}

		var assigned bool
		for _, r := range roles {
			if r.ID == *req.RoleID {
				assigned = true
				break
			}
		}

		if !assigned {
			return fiber.NewError(fiber.StatusForbidden, ErrRoleNotAssigned.Error())
		}
	}

	sess.ActiveRoleID = req.RoleID

	sessionID := c.Cookies(session.CookieName)
	if err := sess.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return fiber.ErrInternalServerError
	}

	return c.JSON(sessionResponse(sess))
}

func (s *Service) setSessionCookie(c *fiber.Ctx, sessionID string) {
	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)
}

func sessionResponse(sess *session.Data) fiber.Map {
	return fiber.Map{
		"user": fiber.Map{
			"id":       sess.User.ID,
			"username": sess.User.Username,
			"email":    sess.User.Email,
		},
		"tenant_id":      sess.TenantID(),
		"active_role_id": sess.ActiveRoleID,
	}
}
