package authz

import (
	"github.com/google/uuid"

	"github.com/openrealty/openrealty/internal/db/models"
)

// Wildcard matches any action or any subject in a permission rule.
const Wildcard = "*"

// Actions understood by the stored rules. Action is an open string; these
// constants only name the verbs the seeder and the API handlers use.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionList   = "list"
	ActionProxy  = "proxy"
)

// Subjects used by the API handlers. Subject is an open string as well.
const (
	SubjectTenant      = "Tenant"
	SubjectUser        = "User"
	SubjectRole        = "Role"
	SubjectAbility     = "Ability"
	SubjectUserAbility = "UserAbility"
	SubjectListing     = "Listing"
	SubjectNLPService  = "NlpService"
	SubjectLLMService  = "LlmService"
)

// RuleSource tells which table a rule was loaded from.
type RuleSource string

const (
	// SourceRole marks a rule derived from a role Ability.
	SourceRole RuleSource = "role"
	// SourceUser marks a rule derived from a UserAbility override.
	SourceUser RuleSource = "user"
)

// Conditions is a set of field predicates. A resource satisfies the set
// when every key matches: scalar values by equality, slice values by
// membership. An empty or nil set is always satisfied.
type Conditions map[string]any

// Rule is the flat permission-rule shape shared by role abilities and
// per-user overrides. The resolver operates on Rule only, so it never needs
// to know where a rule was stored.
type Rule struct {
	Action        string
	Subject       string
	Conditions    Conditions
	Inverted      bool
	Priority      int
	Source        RuleSource
	RoleContextID *uuid.UUID
	TenantID      *uuid.UUID
}

// FromAbility converts a role-level ability row into a resolver rule.
func FromAbility(a models.Ability) Rule {
	return Rule{
		Action:     a.Action,
		Subject:    a.Subject,
		Conditions: Conditions(a.Conditions),
		Inverted:   a.Inverted,
		Priority:   a.Priority,
		Source:     SourceRole,
	}
}

// FromUserAbility converts a per-user override row into a resolver rule.
func FromUserAbility(ua models.UserAbility) Rule {
	tenantID := ua.TenantID

	return Rule{
		Action:        ua.Action,
		Subject:       ua.Subject,
		Conditions:    Conditions(ua.Conditions),
		Inverted:      ua.Inverted,
		Priority:      ua.Priority,
		Source:        SourceUser,
		RoleContextID: ua.RoleContextID,
		TenantID:      &tenantID,
	}
}
