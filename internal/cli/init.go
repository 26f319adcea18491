// Package cli contains the cobra command constructors for the atelier
// binary. Commands are thin translators over the wire services.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/config"
	"github.com/example/atelier/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var genURL, model, userID string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize atelier in the current directory",
		Long: `Write .atelier/config.json to the current directory and create the
database schema.

Examples:
  atelier init
  atelier init --generation-url http://localhost:8090 --user alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			if _, err := config.LoadConfig(cwd); err == nil {
				fmt.Println("atelier is already initialized here")
				return nil
			}

			cfg := &config.Config{
				Version:       "1",
				UserID:        userID,
				GenerationURL: genURL,
				Model:         model,
			}
			if err := config.SaveConfig(cwd, cfg); err != nil {
				return err
			}

			if _, err := db.GetDB(); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			dbPath, _ := db.GetDBPath()
			fmt.Println("✓ Initialized atelier")
			fmt.Printf("  Config:   %s/.atelier/config.json\n", cwd)
			fmt.Printf("  Database: %s\n", dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&genURL, "generation-url", "", "generation service base URL")
	cmd.Flags().StringVar(&model, "model", "", "generation model name")
	cmd.Flags().StringVar(&userID, "user", "", "default user ID for new projects")
	return cmd
}
