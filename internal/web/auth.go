package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/web/handler/health"
	"github.com/openrealty/openrealty/internal/web/handler/login"
	"github.com/openrealty/openrealty/internal/web/handler/oidc"
)

// AuthMiddleware rejects unauthenticated API requests. Probe endpoints
// and login endpoints stay reachable without a session.
func AuthMiddleware(c *fiber.Ctx) error {
	if isPublicPath(c.Path()) {
		return c.Next()
	}

	if _, ok := authz.SessionFromCtx(c); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	return c.Next()
}

func isPublicPath(path string) bool {
	switch path {
	case login.Path, health.CheckAlivePath, health.MetricsPath:
		return true
	}

	return strings.HasPrefix(path, oidc.LoginPath) ||
		strings.HasPrefix(path, oidc.CallbackPath)
}
