// Package main provides the entry point for the OpenRealty backend.
// It runs a JSON API server built on the Fiber framework for managing
// tenants, users, roles, fine-grained permissions and property listings,
// and forwards search and text-generation calls to the sibling services.
// The application uses gorm for data persistence.
package main
