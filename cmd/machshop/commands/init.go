package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the MachShop database and config",
		Long: `Initialize the MachShop data directory: create the SQLite database, run
migrations, and write a starter configuration file when none exists.`,
		Example: `  # Initialize in ./data
  machshop init

  # Initialize in a custom directory
  machshop init --data-dir /var/lib/machshop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Str("data_dir", dataDir).Msg("Initializing MachShop")

			ctx := cmd.Context()

			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			fmt.Printf("✓ Created directory: %s\n", dataDir)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Store.Path = filepath.Join(dataDir, "machshop.db")

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Printf("✓ Initialized SQLite database: %s\n", cfg.Store.Path)

			cfgPath := configPath
			if cfgPath == "" {
				cfgPath = filepath.Join(dataDir, "machshop.yaml")
			}
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				starter := fmt.Sprintf(starterConfig, cfg.Store.Path)
				if err := os.WriteFile(cfgPath, []byte(starter), 0o600); err != nil {
					return fmt.Errorf("failed to write config file: %w", err)
				}
				fmt.Printf("✓ Wrote starter config: %s\n", cfgPath)
			}

			fmt.Println("\nMachShop workspace ready.")
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "data directory")

	return cmd
}

const starterConfig = `# MachShop Configuration

store:
  path: %s

# Uncomment to pull inventory and document masters from the plant ERP.
# erp:
#   base_url: https://erp.plant.local/api/v1
#   token: ""
#   timeout_seconds: 10

cache:
  enabled: true
  size: 1024

planner:
  high_impact_threshold: 100000
  high_impact_extension_days: 15
  non_interchangeable_extension_days: 30

telemetry:
  logging:
    level: info
    format: console
`
