// Package gateway forwards API calls to the sibling services: the
// natural-language query service and the description generation service.
// The gateway only authenticates and authorizes; the body passes through
// untouched.
package gateway

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/web/handler"
)

const (
	// NLPPath is the prefix forwarded to the natural-language service.
	NLPPath = handler.APIPath + "/nlp"

	// LLMPath is the prefix forwarded to the description service.
	LLMPath = handler.APIPath + "/llm"
)

// Service proxies requests to the configured upstreams.
type Service struct {
	cfg *config.Config
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the proxy routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, _ *gorm.DB, authzService *authz.Service) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg

	if cfg.Services.NLP.URL != "" {
		app.All(NLPPath+"/*",
			authz.RequireAbility(authzService, authz.ActionProxy, authz.SubjectNLPService),
			s.forward(NLPPath, cfg.Services.NLP),
		)
	} else {
		log.Info().Msg("nlp upstream not configured, gateway route disabled")
	}

	if cfg.Services.LLM.URL != "" {
		app.All(LLMPath+"/*",
			authz.RequireAbility(authzService, authz.ActionProxy, authz.SubjectLLMService),
			s.forward(LLMPath, cfg.Services.LLM),
		)
	} else {
		log.Info().Msg("llm upstream not configured, gateway route disabled")
	}

	return nil
}

// forward builds the proxy handler for one upstream. The prefix is
// stripped, so /api/nlp/search reaches the upstream as /search.
func (s *Service) forward(prefix string, upstream config.Upstream) fiber.Handler {
	base := strings.TrimSuffix(upstream.URL, "/")

	return func(c *fiber.Ctx) error {
		target := base + strings.TrimPrefix(c.OriginalURL(), prefix)

		if err := proxy.DoTimeout(c, target, upstream.Timeout); err != nil {
			log.Error().Err(err).Str("target", target).Msg("upstream request failed")
			return fiber.ErrBadGateway
		}

		// upstream headers pass through, except hop-by-hop server info
		c.Response().Header.Del(fiber.HeaderServer)

		return nil
	}
}
