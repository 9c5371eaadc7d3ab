// Package login provides the JSON endpoints for session lifecycle:
// logging in, logging out and switching the active role.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrInvalidFormData is returned when the submitted login payload cannot
	// be parsed or fails validation.
	ErrInvalidFormData = errors.New("invalid login payload")

	// ErrInvalidCredentials is returned when the provided username and/or
	// password are not valid.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrRoleNotAssigned is returned when a role switch names a role the
	// user does not hold.
	ErrRoleNotAssigned = errors.New("role is not assigned to user")
)
