package authz

import "errors"

var (
	// ErrEvaluation is returned when a rule lookup or a resolver call
	// fails. The accompanying decision is always deny; the resolver never
	// allows on error.
	ErrEvaluation = errors.New("authorization evaluation failed")

	// ErrProtectedRole is returned when a mutating operation targets a
	// protected role (deleting it or stripping its abilities). The
	// operation must be refused before any stored rule is consulted.
	ErrProtectedRole = errors.New("role is protected")

	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
