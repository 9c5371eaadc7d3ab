package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
	"github.com/openrealty/openrealty/internal/uniuri"
)

// stateTokenLen gives ~190 bits of entropy for the CSRF state token.
const stateTokenLen = 32

// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
var ErrOIDCDisabled = errors.New("oidc authentication is disabled")

// OIDCConfig holds OpenID Connect (OIDC) configuration for authentication.
type OIDCConfig struct {
	// Enabled indicates if OIDC authentication is enabled.
	Enabled bool
	// ProviderURL is the OIDC provider's discovery URL (e.g., "https://accounts.google.com").
	ProviderURL string
	// ClientID is the OAuth2 client identifier.
	ClientID string
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string
	// RedirectURL is the OAuth2 callback URL where the provider redirects after authentication.
	RedirectURL string
	// Scopes are the OAuth2 scopes to request (default: ["openid", "profile", "email"]).
	Scopes []string
}

// OIDCProvider handles OIDC authentication.
type OIDCProvider struct {
	config   *OIDCConfig
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
	db       *gorm.DB
}

// NewOIDCProvider creates a new OIDC provider.
func NewOIDCProvider(ctx context.Context, config *OIDCConfig, db *gorm.DB) (*OIDCProvider, error) {
	if !config.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, config.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: config.ClientID,
	})

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	oauth2Config := oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	return &OIDCProvider{
		config:   config,
		provider: provider,
		verifier: verifier,
		oauth2:   oauth2Config,
		db:       db,
	}, nil
}

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	return uniuri.NewLen(stateTokenLen), nil
}

// GetAuthURL returns the OIDC authorization URL with state token.
func (p *OIDCProvider) GetAuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// HandleCallback handles the OIDC callback and returns the authenticated
// user, provisioning an account on first login. Role assignment and
// tenant binding of provisioned accounts stay with the administrators.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.User, error) {
	// Exchange code for token
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// Extract ID token
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	// Verify ID token
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	// Extract claims
	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}

	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	// Find or create user
	var user models.User

	err = p.db.Where("external_id = ? AND auth_source = ?", claims.Sub, models.AuthSourceOIDC).
		First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ID:         uuid.New(),
			Active:     true,
			Username:   claims.Email, // use email as username
			Email:      claims.Email,
			AuthSource: models.AuthSourceOIDC,
			ExternalID: claims.Sub,
			CreatedBy:  &models.SystemUserID,
			UpdatedBy:  &models.SystemUserID,
		}

		if err = p.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to query user: %w", err)
	default:
		if !user.Active {
			return nil, ErrUserAccountDisabled
		}

		// keep the email current with the identity provider
		user.Email = claims.Email

		if err = p.db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return &user, nil
}

// VerifyToken verifies the signature and claims of an OIDC ID token.
// It validates the token was issued by the configured provider and hasn't expired.
func (p *OIDCProvider) VerifyToken(ctx context.Context, rawToken string) (*oidc.IDToken, error) {
	return p.verifier.Verify(ctx, rawToken)
}

// GetLogoutURL constructs the OIDC provider's logout URL if supported.
// It includes the ID token hint and post-logout redirect URI parameters.
// Returns an empty string if the provider doesn't support logout endpoints.
func (p *OIDCProvider) GetLogoutURL(idToken, postLogoutRedirectURI string) string {
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}

	if err := p.provider.Claims(&claims); err != nil || claims.EndSessionEndpoint == "" {
		return ""
	}

	logoutURL := fmt.Sprintf("%s?id_token_hint=%s&post_logout_redirect_uri=%s",
		claims.EndSessionEndpoint,
		idToken,
		postLogoutRedirectURI,
	)

	return logoutURL
}
