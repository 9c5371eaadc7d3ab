// Package authz implements the authorization layer of the platform.
//
// Permissions are stored as flat rules in two tables: role-level abilities
// (an action on a subject, granted to every holder of the role) and
// per-user, per-tenant ability overrides (optionally scoped to a role
// context). Both flatten into the shared Rule shape, and a single pure
// function, Resolve, merges them into an allow/deny decision:
//
//   - a rule matches when action and subject equal the request (or are the
//     "*" wildcard), its tenant and role-context scopes fit, and its
//     conditions hold for the resource instance
//   - among matches the strictly highest priority wins
//   - on a priority tie an inverted rule (explicit deny) beats allows
//   - no match, or any evaluation fault, denies
//
// For collection queries ResolveFilter additionally yields the condition
// groups the storage query must be narrowed by, so list endpoints only
// return rows the caller could read individually.
//
// Service loads the applicable rule rows from the database (soft-deleted
// roles, assignments and overrides are invisible) and feeds them to the
// resolver. RequireAbility wraps that into Fiber middleware for the API
// routes.
//
// Independently of the stored rules, Guard protects a configured allowlist
// of role names from deletion and ability stripping. The guard runs before
// the resolver and cannot be overridden by any grant; it is the structural
// protection against locking every administrator out.
package authz
