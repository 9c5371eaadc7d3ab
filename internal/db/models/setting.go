// Package models contains the database model definitions.
package models

// Setting is a named application-level configuration value stored in the
// database so it can be changed without a redeploy. Used among other
// things for the protected-role list consulted by the authorization guard.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique"`
	Value []byte `gorm:"type:blob"`
}
