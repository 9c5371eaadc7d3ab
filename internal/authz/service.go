package authz

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openrealty/openrealty/internal/db/models"
)

// Service gathers the rule rows a decision needs and hands them to the
// pure resolver. It performs reads only; rule mutation goes through the
// db controllers.
type Service struct {
	db    *gorm.DB
	guard *Guard
}

// NewService creates an authorization service on top of the given
// database handle and protected-role guard.
func NewService(db *gorm.DB, guard *Guard) *Service {
	if guard == nil {
		guard = NewGuard()
	}

	return &Service{db: db, guard: guard}
}

// Guard exposes the protected-role guard for callers that mutate roles.
func (s *Service) Guard() *Guard {
	return s.guard
}

// RulesFor loads every rule applicable to the user: the abilities of the
// user's live roles plus the user's per-tenant overrides. Soft-deleted
// roles, assignments and overrides contribute nothing (GORM excludes them
// from all queries here). Role-context and tenant narrowing beyond the
// load is left to the resolver's matching.
func (s *Service) RulesFor(userID uuid.UUID, tenantID *uuid.UUID) ([]Rule, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var assignments []models.UserRole
	if err := s.db.Where("user_id = ?", userID).Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("%w: loading role assignments: %v", ErrEvaluation, err)
	}

	roleIDs := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		roleIDs = append(roleIDs, a.RoleID)
	}

	var rules []Rule

	if len(roleIDs) > 0 {
		// keep only roles that are still live
		var roles []models.Role
		if err := s.db.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return nil, fmt.Errorf("%w: loading roles: %v", ErrEvaluation, err)
		}

		liveIDs := make([]uuid.UUID, 0, len(roles))
		for _, r := range roles {
			liveIDs = append(liveIDs, r.ID)
		}

		if len(liveIDs) > 0 {
			var abilities []models.Ability
			if err := s.db.Where("role_id IN ?", liveIDs).Find(&abilities).Error; err != nil {
				return nil, fmt.Errorf("%w: loading abilities: %v", ErrEvaluation, err)
			}

			for _, a := range abilities {
				rules = append(rules, FromAbility(a))
			}
		}
	}

	// per-user overrides are tenant-scoped; without a tenant none apply
	if tenantID != nil {
		var overrides []models.UserAbility
		if err := s.db.Where("user_id = ? AND tenant_id = ?", userID, *tenantID).
			Find(&overrides).Error; err != nil {
			return nil, fmt.Errorf("%w: loading user abilities: %v", ErrEvaluation, err)
		}

		for _, ua := range overrides {
			rules = append(rules, FromUserAbility(ua))
		}
	}

	return rules, nil
}

// Can decides whether the user may perform action on subject, optionally
// against a concrete resource instance. Any storage fault denies.
func (s *Service) Can(
	userID uuid.UUID,
	tenantID, activeRoleID *uuid.UUID,
	action, subject string,
	resource map[string]any,
) (Decision, error) {
	rules, err := s.RulesFor(userID, tenantID)
	if err != nil {
		return Decision{Reason: "rule lookup failed"}, err
	}

	return Resolve(Input{
		TenantID:     tenantID,
		ActiveRoleID: activeRoleID,
		Action:       action,
		Subject:      subject,
		Resource:     resource,
		Rules:        rules,
	})
}

// Filter decides a collection question and returns the condition groups
// the storage query must apply. See ResolveFilter for the filter contract.
func (s *Service) Filter(
	userID uuid.UUID,
	tenantID, activeRoleID *uuid.UUID,
	action, subject string,
) (Decision, []Conditions, error) {
	rules, err := s.RulesFor(userID, tenantID)
	if err != nil {
		return Decision{Reason: "rule lookup failed"}, nil, err
	}

	return ResolveFilter(Input{
		TenantID:     tenantID,
		ActiveRoleID: activeRoleID,
		Action:       action,
		Subject:      subject,
		Rules:        rules,
	})
}
