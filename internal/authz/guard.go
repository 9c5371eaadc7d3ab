package authz

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/controller/setting"
	"github.com/openrealty/openrealty/internal/db/models"
)

// ProtectedRolesSetting is the settings key holding the protected role
// names as a JSON string array. When absent the configured (or default)
// names apply.
const ProtectedRolesSetting = "authz.protected_roles"

// Guard is the structural lockout protection sitting above the generic
// rule resolver: a fixed allowlist of role names that can never be deleted
// and whose abilities can never be stripped, no matter what the stored
// rules say. It exists so that no sequence of grants can remove the roles
// the platform itself depends on.
type Guard struct {
	protected map[string]struct{}
}

// NewGuard builds a guard for the given role names. With no names it
// protects the bootstrap-critical defaults ("system" and "admin").
func NewGuard(names ...string) *Guard {
	if len(names) == 0 {
		names = []string{models.RoleSystem, models.RoleAdmin}
	}

	g := &Guard{protected: make(map[string]struct{}, len(names))}
	for _, n := range names {
		g.protected[n] = struct{}{}
	}

	return g
}

// LoadGuard builds a guard from the protected-role names stored in the
// settings table, falling back to the given names (and then the defaults)
// when the setting is absent or unreadable. Treating the list as stored
// configuration keeps role protection out of code literals.
func LoadGuard(db *gorm.DB, fallback ...string) *Guard {
	s, err := setting.Get(db, ProtectedRolesSetting)
	if err != nil {
		return NewGuard(fallback...)
	}

	var names []string
	if err := json.Unmarshal(s.Value, &names); err != nil || len(names) == 0 {
		return NewGuard(fallback...)
	}

	return NewGuard(names...)
}

// Protected reports whether the role name is on the allowlist.
func (g *Guard) Protected(roleName string) bool {
	_, ok := g.protected[roleName]
	return ok
}

// CheckRoleMutation refuses destructive operations on protected roles.
// It returns ErrProtectedRole for a protected name and nil otherwise;
// callers must run it before touching the role or its abilities.
func (g *Guard) CheckRoleMutation(roleName string) error {
	if g.Protected(roleName) {
		return ErrProtectedRole
	}

	return nil
}

// Names returns the protected role names, mainly for logging.
func (g *Guard) Names() []string {
	out := make([]string, 0, len(g.protected))
	for n := range g.protected {
		out = append(out, n)
	}

	return out
}
