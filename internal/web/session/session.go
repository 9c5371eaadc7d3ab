// Package session stores the logged-in principal between requests. The
// payload lives in a fiber storage backend (MySQL or Postgres); the
// cookie carries only the random session ID.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage"
	"github.com/google/uuid"

	"github.com/openrealty/openrealty/internal/db/models"
)

// CookieName is the cookie that carries the session ID.
const CookieName = "session"

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
type Data struct {
	// User is the authenticated user as loaded at login time.
	User models.User
	// ActiveRoleID is the role the user is currently exercising, set by
	// the role-switch endpoint. Nil means no role context.
	ActiveRoleID *uuid.UUID
}

// TenantID returns the tenant the session operates in, nil for users
// without a tenant binding.
func (s *Data) TenantID() *uuid.UUID {
	return s.User.TenantID
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Destroy removes the session, logging the user out.
func Destroy(sessionID string) error {
	return Store.Storage.Delete(sessionID)
}

// Init initializes the session store with the provided storage backend.
func Init(storage storage.Storage) {
	if storage == nil {
		panic("storage is nil")
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
