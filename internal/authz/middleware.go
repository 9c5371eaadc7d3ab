package authz

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openrealty/openrealty/internal/web/session"
)

// RequireAbility creates Fiber middleware that admits the request only
// when the session user may perform action on subject. Missing or invalid
// sessions answer 401, a deny answers 403 and an evaluation fault
// answers 500. There is no pass-through allow.
func RequireAbility(svc *Service, action, subject string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := readSession(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		dec, err := svc.Can(sess.User.ID, sess.TenantID(), sess.ActiveRoleID, action, subject, nil)
		if err != nil {
			log.Error().Err(err).
				Str("user_id", sess.User.ID.String()).
				Str("action", action).
				Str("subject", subject).
				Msg("authorization evaluation failed")

			return fiber.NewError(fiber.StatusInternalServerError, "authorization unavailable")
		}

		if !dec.Allowed {
			log.Warn().
				Str("user_id", sess.User.ID.String()).
				Str("action", action).
				Str("subject", subject).
				Str("reason", dec.Reason).
				Msg("request denied")

			return fiber.NewError(fiber.StatusForbidden, "forbidden")
		}

		return c.Next()
	}
}

// SessionFromCtx returns the validated session of the request, or false
// when the request carries none. Handlers use it to scope queries to the
// caller's tenant.
func SessionFromCtx(c *fiber.Ctx) (*session.Data, bool) {
	return readSession(c)
}

func readSession(c *fiber.Ctx) (*session.Data, bool) {
	sessionID := c.Cookies(session.CookieName)
	if sessionID == "" {
		return nil, false
	}

	data := new(session.Data)
	if err := data.Read(sessionID); err != nil {
		return nil, false
	}

	// the all-zero UUID is the system principal, which never logs in
	if data.User.ID == uuid.Nil {
		return nil, false
	}

	return data, true
}
