package daemon

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/authz"
	"github.com/openrealty/openrealty/internal/config"
	"github.com/openrealty/openrealty/internal/db/controller/role"
	"github.com/openrealty/openrealty/internal/db/controller/setting"
	"github.com/openrealty/openrealty/internal/db/models"
)

// seedAbility describes one rule attached to a seeded role.
type seedAbility struct {
	action     string
	subject    string
	conditions datatypes.JSONMap
	inverted   bool
	priority   int
}

// seed creates the built-in roles, the system principal and the first
// admin account. It only runs against an empty user table, so restarts
// never overwrite operator changes.
func seed(cfg *config.Config, db *gorm.DB) {
	seedProtectedRoles(cfg, db)

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	roles := seedRoles(db)

	// The system principal owns seeded records. It carries the all-zero
	// UUID and can never authenticate.
	system := &models.User{
		ID:         models.SystemUserID,
		Email:      "system@localhost",
		Username:   "system",
		Active:     false,
		AuthSource: models.AuthSourceLocal,
	}

	// Active carries a default:true tag, so the zero value would be
	// dropped from the insert. Select forces the column through.
	err := db.
		Select("ID", "Email", "Username", "Password", "Active", "AuthSource", "CreatedAt", "UpdatedAt").
		Create(system).Error
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed system user")
	}

	if systemRole, ok := roles[models.RoleSystem]; ok {
		assignSeedRole(db, system.ID, systemRole)
	}

	// Default admin account. Change the password after first login.
	admin := &models.User{
		ID:         uuid.New(),
		Email:      "admin@localhost",
		Username:   "admin",
		Password:   models.HashPassword("changeme"),
		Active:     true,
		AuthSource: models.AuthSourceLocal,
		CreatedBy:  &models.SystemUserID,
		UpdatedBy:  &models.SystemUserID,
	}
	if err := db.Create(admin).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	if adminRole, ok := roles[models.RoleAdmin]; ok {
		assignSeedRole(db, admin.ID, adminRole)
	}

	log.Info().Msg("seeded initial roles and admin account, default password must be changed")
}

// seedRoles creates the built-in roles with their rules and returns them
// by name. Roles that already exist are left untouched.
func seedRoles(db *gorm.DB) map[string]uuid.UUID {
	definitions := map[string]struct {
		description string
		abilities   []seedAbility
	}{
		models.RoleSystem: {
			description: "internal platform principal",
			abilities: []seedAbility{
				{action: authz.Wildcard, subject: authz.Wildcard, priority: 1},
			},
		},
		models.RoleAdmin: {
			description: "platform administrator",
			abilities: []seedAbility{
				{action: authz.Wildcard, subject: authz.Wildcard, priority: 1},
			},
		},
		models.RoleUser: {
			description: "portal user",
			abilities: []seedAbility{
				{action: authz.ActionRead, subject: authz.SubjectListing, priority: 1},
				{action: authz.ActionList, subject: authz.SubjectListing, priority: 1},
				{action: authz.ActionProxy, subject: authz.SubjectNLPService, priority: 1},
			},
		},
	}

	roles := make(map[string]uuid.UUID, len(definitions))

	for name, def := range definitions {
		r, err := role.Create(db, name, def.description)
		if errors.Is(err, role.ErrRoleConflict) {
			existing, getErr := role.GetByName(db, name)
			if getErr != nil {
				log.Fatal().Err(getErr).Str("role", name).Msg("failed to load existing role")
			}

			roles[name] = existing.ID

			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("role", name).Msg("failed to seed role")
		}

		roles[name] = r.ID

		for _, a := range def.abilities {
			if _, err := role.AddAbility(db, r.ID, a.action, a.subject, a.conditions, a.inverted, a.priority); err != nil {
				log.Fatal().Err(err).Str("role", name).Msg("failed to seed role ability")
			}
		}
	}

	return roles
}

// seedProtectedRoles stores the configured protected-role list when the
// settings table does not carry one yet.
func seedProtectedRoles(cfg *config.Config, db *gorm.DB) {
	if len(cfg.Authz.ProtectedRoles) == 0 {
		return
	}

	if _, err := setting.Get(db, authz.ProtectedRolesSetting); err == nil {
		return
	}

	value, err := json.Marshal(cfg.Authz.ProtectedRoles)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode protected roles")
		return
	}

	if _, err := setting.Set(db, authz.ProtectedRolesSetting, value); err != nil {
		log.Error().Err(err).Msg("failed to store protected roles")
	}
}

func assignSeedRole(db *gorm.DB, userID, roleID uuid.UUID) {
	ur := &models.UserRole{
		ID:        uuid.New(),
		UserID:    userID,
		RoleID:    roleID,
		CreatedBy: &models.SystemUserID,
		UpdatedBy: &models.SystemUserID,
	}
	if err := db.Create(ur).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to seed role assignment")
	}
}
