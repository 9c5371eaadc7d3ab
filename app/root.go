// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "openrealty",
	Short: "OpenRealty is the backend of the multi-tenant real-estate portal",
	Long: `OpenRealty is the backend of the multi-tenant real-estate portal.
It serves the JSON API for tenants, users, roles, permissions and
property listings, and fronts the sibling search and text services.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
