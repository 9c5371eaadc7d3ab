package login

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/controller/user"
	"github.com/openrealty/openrealty/internal/db/models"
	websess "github.com/openrealty/openrealty/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.Ability{},
		&models.UserRole{},
		&models.UserAbility{},
	)
	if err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		Webserver: config.Webserver{
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

func initSessionStore() {
	// Fresh in-memory session store for each test.
	websess.Init(memory.New())
}

func newTestService(t *testing.T, db *gorm.DB) (*fiber.App, *Service) {
	t.Helper()

	app := fiber.New()
	cfg := newTestConfig()

	initSessionStore()

	var s Service
	if err := s.Init(app, cfg, db, nil); err != nil {
		t.Fatalf("failed to init login handler: %v", err)
	}

	return app, &s
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	u, err := user.Create(db, nil, username+"@example.com", username, password, models.SystemUserID)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return u
}

func postJSON(t *testing.T, app *fiber.App, target string, body any, cookie string) *http.Response {
	t.Helper()

	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")

	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: websess.CookieName, Value: cookie})
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func sessionCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == websess.CookieName {
			return c.Value
		}
	}

	return ""
}

func TestLoginSuccess(t *testing.T) {
	db := newTestDB(t)
	app, _ := newTestService(t, db)

	createTestUser(t, db, "alice", "s3cr3t")

	resp := postJSON(t, app, Path, map[string]string{"username": "alice", "password": "s3cr3t"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == "" {
		t.Fatal("expected a session cookie")
	}

	// cookie must resolve to a stored session
	sess := new(websess.Data)
	if err := sess.Read(cookie); err != nil {
		t.Fatalf("failed to read session: %v", err)
	}

	if sess.User.Username != "alice" {
		t.Fatalf("expected session for alice, got %q", sess.User.Username)
	}
}

func TestLoginRejected(t *testing.T) {
	db := newTestDB(t)
	app, _ := newTestService(t, db)

	createTestUser(t, db, "alice", "s3cr3t")
	disabled := createTestUser(t, db, "mallory", "s3cr3t")

	if err := db.Model(disabled).Update("active", false).Error; err != nil {
		t.Fatalf("failed to disable user: %v", err)
	}

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "ghost", "password": "s3cr3t"}, http.StatusUnauthorized},
		{"disabled account", map[string]string{"username": "mallory", "password": "s3cr3t"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest},
		{"missing username", map[string]string{"password": "s3cr3t"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, Path, tt.body, "")
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}

			if cookie := sessionCookie(resp); cookie != "" {
				t.Fatalf("expected no session cookie, got %q", cookie)
			}
		})
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	db := newTestDB(t)
	app, _ := newTestService(t, db)

	createTestUser(t, db, "alice", "s3cr3t")

	resp := postJSON(t, app, Path, map[string]string{"username": "alice", "password": "s3cr3t"}, "")
	cookie := sessionCookie(resp)
	if cookie == "" {
		t.Fatal("expected a session cookie")
	}

	resp = postJSON(t, app, LogoutPath, nil, cookie)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	sess := new(websess.Data)
	if err := sess.Read(cookie); err == nil {
		t.Fatal("expected session to be gone after logout")
	}
}

func TestSessionIntrospection(t *testing.T) {
	db := newTestDB(t)
	app, _ := newTestService(t, db)

	createTestUser(t, db, "alice", "s3cr3t")

	// without a session
	req := httptest.NewRequest(http.MethodGet, SessionPath, nil)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}

	// with a session
	resp = postJSON(t, app, Path, map[string]string{"username": "alice", "password": "s3cr3t"}, "")
	cookie := sessionCookie(resp)

	req = httptest.NewRequest(http.MethodGet, SessionPath, nil)
	req.AddCookie(&http.Cookie{Name: websess.CookieName, Value: cookie})

	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", resp.StatusCode)
	}

	var body struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}

	if body.User.Username != "alice" {
		t.Fatalf("expected alice in session response, got %q", body.User.Username)
	}
}

func TestSwitchRole(t *testing.T) {
	db := newTestDB(t)
	app, _ := newTestService(t, db)

	alice := createTestUser(t, db, "alice", "s3cr3t")

	assigned := &models.Role{ID: uuid.New(), Name: "agency-manager"}
	other := &models.Role{ID: uuid.New(), Name: "auditor"}

	if err := db.Create(assigned).Error; err != nil {
		t.Fatalf("failed to create role: %v", err)
	}

	if err := db.Create(other).Error; err != nil {
		t.Fatalf("failed to create role: %v", err)
	}

	if _, err := user.AssignRole(db, alice.ID, assigned.ID, models.SystemUserID); err != nil {
		t.Fatalf("failed to assign role: %v", err)
	}

	resp := postJSON(t, app, Path, map[string]string{"username": "alice", "password": "s3cr3t"}, "")
	cookie := sessionCookie(resp)

	// switching to an assigned role sticks
	resp = postJSON(t, app, SessionPath+"/role", map[string]any{"role_id": assigned.ID}, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	sess := new(websess.Data)
	if err := sess.Read(cookie); err != nil {
		t.Fatalf("failed to read session: %v", err)
	}

	if sess.ActiveRoleID == nil || *sess.ActiveRoleID != assigned.ID {
		t.Fatalf("expected active role %s, got %v", assigned.ID, sess.ActiveRoleID)
	}

	// switching to a role the user does not hold is refused
	resp = postJSON(t, app, SessionPath+"/role", map[string]any{"role_id": other.ID}, cookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// a null role clears the context
	resp = postJSON(t, app, SessionPath+"/role", map[string]any{"role_id": nil}, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := sess.Read(cookie); err != nil {
		t.Fatalf("failed to read session: %v", err)
	}

	if sess.ActiveRoleID != nil {
		t.Fatalf("expected cleared role context, got %v", sess.ActiveRoleID)
	}
}
