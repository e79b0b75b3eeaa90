// Package cli defines the policywizard command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "policywizard",
	Short: "Course academic integrity policy tool",
	Long: "LTI tool for authoring and publishing per-course academic integrity policies.\n" +
		"Instructors publish one active policy per course; students view it; administrators maintain the template catalog.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
