package authz

import (
	"fmt"

	"github.com/google/uuid"
)

// Input carries one authorization question: may this principal perform
// Action on Subject, optionally against a concrete resource instance?
// Rules must already be fetched (see Service); Resolve never touches
// storage, which keeps it a pure function.
type Input struct {
	// TenantID is the tenant the request executes in. Rules carrying a
	// tenant scope apply only when it matches.
	TenantID *uuid.UUID
	// ActiveRoleID is the role the principal is currently exercising.
	// Rules carrying a role context apply only when it matches.
	ActiveRoleID *uuid.UUID
	// Action is the requested verb, e.g. "read".
	Action string
	// Subject is the requested resource type, e.g. "Listing".
	Subject string
	// Resource optionally holds the field values of a concrete resource
	// instance. When nil the check is type-level and rule conditions are
	// deferred to the query filter.
	Resource map[string]any
	// Rules is the merged rule set gathered from the principal's roles and
	// per-user overrides.
	Rules []Rule
}

// Decision is the outcome of a resolver call. Allowed defaults to false:
// no matching rule, or any evaluation fault, denies.
type Decision struct {
	Allowed bool
	// Reason is a short human-readable explanation, meant for logs.
	Reason string
	// Priority of the rule tier that decided, 0 when nothing matched.
	Priority int
}

// Resolve answers an authorization question against the supplied rules.
//
// Matching: a rule matches when its action and subject equal the requested
// ones or are the "*" wildcard, its tenant scope (if any) equals the
// request tenant, its role context (if any) equals the active role, and its
// conditions are satisfied by the resource instance. A conditional rule
// matches a type-level check (nil resource); the conditions then belong in
// the query filter (see ResolveFilter).
//
// Merge: among matching rules the strictly highest priority wins; on a tie
// an inverted rule (explicit deny) beats allows. No match denies.
//
// Resolve mutates nothing and returns an error only for a malformed
// question; the decision is deny in every error path.
func Resolve(in Input) (Decision, error) {
	if in.Action == "" || in.Subject == "" {
		return Decision{Reason: "malformed input"}, fmt.Errorf("%w: empty action or subject", ErrEvaluation)
	}

	var (
		top      []Rule
		topPrio  int
		anyMatch bool
	)

	for _, r := range in.Rules {
		if r.Action == "" || r.Subject == "" {
			return Decision{Reason: "malformed rule"}, fmt.Errorf("%w: rule with empty action or subject", ErrEvaluation)
		}

		if !r.matches(in) {
			continue
		}

		switch {
		case !anyMatch || r.Priority > topPrio:
			top = append(top[:0], r)
			topPrio = r.Priority
			anyMatch = true
		case r.Priority == topPrio:
			top = append(top, r)
		}
	}

	if !anyMatch {
		return Decision{Reason: "no matching rule"}, nil
	}

	for _, r := range top {
		if r.Inverted {
			return Decision{Reason: "denied by inverted rule", Priority: topPrio}, nil
		}
	}

	return Decision{Allowed: true, Reason: "allowed", Priority: topPrio}, nil
}

// ResolveFilter answers a collection ("list") question. The decision tells
// whether the principal may list the subject at all; the returned filter is
// the set of alternative condition groups (OR of AND-groups) the storage
// query must be narrowed by. An empty filter with an allowing decision
// means unrestricted access to the collection.
func ResolveFilter(in Input) (Decision, []Conditions, error) {
	in.Resource = nil // type-level: conditions become the filter

	dec, err := Resolve(in)
	if err != nil || !dec.Allowed {
		return dec, nil, err
	}

	var filter []Conditions

	for _, r := range in.Rules {
		if !r.matches(in) || r.Priority != dec.Priority || r.Inverted {
			continue
		}

		if len(r.Conditions) == 0 {
			// one unconditional allow at the winning tier opens the
			// whole collection
			return dec, nil, nil
		}

		filter = append(filter, r.Conditions)
	}

	return dec, filter, nil
}

// matches reports whether the rule applies to the question, checking
// action, subject, tenant scope, role context and conditions in turn.
func (r Rule) matches(in Input) bool {
	if r.Action != Wildcard && r.Action != in.Action {
		return false
	}

	if r.Subject != Wildcard && r.Subject != in.Subject {
		return false
	}

	if r.TenantID != nil && (in.TenantID == nil || *r.TenantID != *in.TenantID) {
		return false
	}

	if r.RoleContextID != nil && (in.ActiveRoleID == nil || *r.RoleContextID != *in.ActiveRoleID) {
		return false
	}

	if in.Resource != nil && !r.Conditions.SatisfiedBy(in.Resource) {
		return false
	}

	return true
}

// SatisfiedBy reports whether every predicate in the set holds for the
// given resource fields. Predicates are equality checks; a slice predicate
// means the field value must be one of its elements. A missing field fails
// the predicate.
func (c Conditions) SatisfiedBy(fields map[string]any) bool {
	for key, want := range c {
		got, ok := fields[key]
		if !ok {
			return false
		}

		if !valueMatches(want, got) {
			return false
		}
	}

	return true
}

// valueMatches compares a condition value against a resource field value.
// Condition values come from JSON columns, so numbers arrive as float64;
// resource fields carry native Go types. Both sides are normalized before
// comparing.
func valueMatches(want, got any) bool {
	if set, ok := want.([]any); ok {
		for _, w := range set {
			if valueMatches(w, got) {
				return true
			}
		}

		return false
	}

	if wf, ok := toFloat(want); ok {
		gf, ok := toFloat(got)
		return ok && wf == gf
	}

	return fmt.Sprintf("%v", want) == fmt.Sprintf("%v", got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
