package config

import (
	"time"

	"github.com/openrealty/openrealty/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Authz     Authz
	OIDC      OIDC
	Services  Services
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath           bool    // use clean path middleware to allow multi slash requests
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// Authz holds authorization settings.
type Authz struct {
	// ProtectedRoles seeds the protected-role guard. The list stored in
	// the settings table wins over this when present.
	ProtectedRoles []string
}

// OIDC holds OpenID Connect settings for external login.
type OIDC struct {
	Enabled      bool
	ProviderURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Upstream names one sibling service the gateway proxies to.
type Upstream struct {
	URL     string        // base url of the upstream service
	Timeout time.Duration // per-request timeout
}

// Services holds the upstream addresses of the sibling services.
type Services struct {
	NLP Upstream // natural-language query service
	LLM Upstream // description generation service
}
