package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coursekit/policywizard/internal/config"
	"github.com/coursekit/policywizard/internal/store"
)

var (
	provisionConfig string
	provisionDB     string
)

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVar(&provisionConfig, "config", "", "Path to config YAML")
	provisionCmd.Flags().StringVar(&provisionDB, "db", "", "Path to sqlite database (overrides config)")
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the schema and seed the template catalog",
	Long: "Initializes the policy store: applies the schema and inserts any missing\n" +
		"catalog template. Idempotent; edited template bodies are never overwritten.",
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(provisionConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if provisionDB != "" {
		cfg.DatabasePath = provisionDB
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open policy store: %w", err)
	}
	defer st.Close()

	if err := st.SeedTemplates(); err != nil {
		return fmt.Errorf("failed to seed templates: %w", err)
	}

	fmt.Printf("provisioned %s with %d catalog templates\n", cfg.DatabasePath, len(store.CatalogNames))
	return nil
}
