package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	var flags contextFlags

	cmd := &cobra.Command{
		Use:   "check <eco-id>",
		Short: "Check whether an ECO applies to a production context",
		Long: `Check evaluates the ECO's effectivity rule against a production context.
Only the context field matching the ECO's effectivity kind is consulted;
an ECO without effectivity is never applicable.`,
		Example: `  # Is the change binding for this production date?
  machshop check eco-7f3a --date 2026-09-15

  # Is it binding for this unit?
  machshop check eco-7f3a --serial 1042`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ectx, err := flags.build()
			if err != nil {
				return err
			}

			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			effective, err := application.service.CheckEffectivity(cmd.Context(), args[0], ectx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"eco_id":    args[0],
					"effective": effective,
				})
			}
			if effective {
				fmt.Println("EFFECTIVE: the change applies to this context")
			} else {
				fmt.Println("NOT EFFECTIVE: the change does not apply to this context")
			}
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
