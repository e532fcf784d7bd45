package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand() *cobra.Command {
	var flags contextFlags

	cmd := &cobra.Command{
		Use:   "resolve <entity-type> <entity-id>",
		Short: "Resolve the document version in force for a context",
		Long: `Resolve answers the floor-control question: which version of a document
must this production transaction use? Active change orders take precedence
over the stored version; unknown documents resolve to the 1.0.0 baseline.`,
		Example: `  machshop resolve work_instruction WI-0042 --date 2026-09-15
  machshop resolve drawing DWG-44 --serial 1042`,
		Args: cobra.ExactArgs(2),
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

			version, err := application.service.GetEffectiveVersion(cmd.Context(), args[0], args[1], ectx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]string{
					"entity_type": args[0],
					"entity_id":   args[1],
					"version":     version,
				})
			}
			fmt.Println(version)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
