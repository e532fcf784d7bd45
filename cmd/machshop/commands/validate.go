package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <eco-id>",
		Short: "Validate an ECO's effectivity configuration",
		Long: `Validate checks the stored effectivity configuration of an ECO: hard
errors (missing or malformed effectivity) block downstream use, warnings
(documents without a target version, open tasks) surface readiness gaps.`,
		Example: `  machshop validate eco-7f3a
  machshop validate eco-7f3a --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := application.service.ValidateEffectivity(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(result)
			}

			if result.IsValid {
				fmt.Println("✓ Effectivity configuration is valid")
			} else {
				fmt.Println("✗ Effectivity configuration is invalid")
			}
			for _, e := range result.Errors {
				fmt.Printf("  error: %s\n", e)
			}
			for _, w := range result.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}

			if !result.IsValid {
				return fmt.Errorf("validation failed with %d error(s)", len(result.Errors))
			}
			return nil
		},
	}

	return cmd
}
