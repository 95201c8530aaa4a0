// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gosgq-admin",
	Short: "GoSGQ-Admin is a web-based quality management console",
	Long: `GoSGQ-Admin is a web-based quality management (SGQ) console
that provides an easy-to-use interface for registering toners, audits,
warranties and non-conformities, with role based access control.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
