// Package oidc provides the endpoints of the OpenID Connect login flow.
package oidc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/auth"
	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/web/handler"
	"github.com/openrealty/openrealty/internal/web/session"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.APIPath + "/auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.APIPath + "/auth/oidc/callback"

	// LogoutPath is the path for OIDC logout.
	LogoutPath = handler.APIPath + "/auth/oidc/logout"

	stateTTL = 5 * time.Minute
)

// Service is the OIDC handler service.
type Service struct {
	cfg          *config.Config
	db           *gorm.DB
	oidcProvider *auth.OIDCProvider

	// Simple in-memory state store (use Redis in production). Written by
	// request handlers and the cleanup goroutine.
	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// Handler is the OIDC handler.
var Handler = Service{
	stateStore: make(map[string]time.Time),
}

// Init initializes the OIDC handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, _ *authz.Service) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg

	if !cfg.OIDC.Enabled {
		log.Info().Msg("OIDC authentication is disabled by configuration")
		return nil
	}

	oidcConfig := auth.OIDCConfig{
		Enabled:      cfg.OIDC.Enabled,
		ProviderURL:  cfg.OIDC.ProviderURL,
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
		RedirectURL:  cfg.OIDC.RedirectURL,
		Scopes:       cfg.OIDC.Scopes,
	}

	oidcProvider, err := auth.NewOIDCProvider(context.Background(), &oidcConfig, db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize OIDC provider, OIDC authentication will be disabled")
		return nil // don't fail, just disable OIDC
	}

	s.oidcProvider = oidcProvider

	log.Info().Msg("OIDC authentication provider initialized")

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)
	app.Get(LogoutPath, s.Logout)

	go s.cleanupStates()

	return nil
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "OIDC authentication is not available")
	}

	// Generate state token for CSRF protection
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")
		return fiber.ErrInternalServerError
	}

	s.stateMu.Lock()
	s.stateStore[state] = time.Now().Add(stateTTL)
	s.stateMu.Unlock()

	return c.Redirect(s.oidcProvider.GetAuthURL(state))
}

// Callback handles the OIDC callback and opens a session.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "OIDC authentication is not available")
	}

	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("missing code or state in OIDC callback")
		return fiber.NewError(fiber.StatusBadRequest, "invalid callback parameters")
	}

	if err := s.consumeState(state); err != nil {
		return err
	}

	authenticatedUser, err := s.oidcProvider.HandleCallback(c.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("OIDC authentication failed")
		return fiber.NewError(fiber.StatusUnauthorized, "authentication failed")
	}

	sessionID, errSession := session.GenerateSessionID()
	if errSession != nil {
		log.Error().Err(errSession).Msg("failed to generate session ID")
		return fiber.ErrInternalServerError
	}

	userSession := &session.Data{
		User: *authenticatedUser,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return fiber.ErrInternalServerError
	}

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

	log.Info().Str("username", authenticatedUser.Username).Msg("user logged in via OIDC")

	return c.Redirect(s.cfg.Webserver.URL)
}

// Logout destroys the session and redirects to the provider's logout
// endpoint when it has one.
func (s *Service) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(session.CookieName)
	if sessionID != "" {
		if err := session.Destroy(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.ClearCookie(session.CookieName)

	if s.oidcProvider != nil {
		postLogoutRedirectURI := s.cfg.Webserver.URL
		logoutURL := s.oidcProvider.GetLogoutURL("", postLogoutRedirectURI)

		if logoutURL != "" {
			return c.Redirect(logoutURL)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// consumeState validates a state token and removes it, so each token
// admits exactly one callback.
func (s *Service) consumeState(state string) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	expiration, exists := s.stateStore[state]
	if !exists {
		log.Error().Str("state", state).Msg("invalid state token")
		return fiber.NewError(fiber.StatusBadRequest, "invalid state token")
	}

	delete(s.stateStore, state)

	if time.Now().After(expiration) {
		log.Error().Str("state", state).Msg("expired state token")
		return fiber.NewError(fiber.StatusBadRequest, "expired state token")
	}

	return nil
}

// cleanupStates periodically removes expired state tokens.
func (s *Service) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		s.stateMu.Lock()
		for state, expiration := range s.stateStore {
			if now.After(expiration) {
				delete(s.stateStore, state)
			}
		}
		s.stateMu.Unlock()
	}
}
