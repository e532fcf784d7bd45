package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "machshop",
		Short: "MachShop - ECO Effectivity & Version Resolution Engine",
		Long: `MachShop manages engineering change orders for a manufacturing execution
backend: when a change becomes binding, which document version a production
transaction must use, and how long the changeover window should be.

Features:
  - Effectivity rules by date, serial number, work order, or lot/batch
  - ECO lifecycle state machine with a full audit history
  - Version resolution with ECO > document > baseline fallback
  - Risk-weighted transition planning over live inventory
  - Optional ERP integration for inventory and document masters`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newVersionsCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newSetEffectivityCommand())
	rootCmd.AddCommand(newTransitionCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newDocumentCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
