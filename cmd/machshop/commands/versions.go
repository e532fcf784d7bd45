package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newVersionsCommand() *cobra.Command {
	var flags contextFlags

	cmd := &cobra.Command{
		Use:   "versions <entity-type> <entity-id>...",
		Short: "Batch version report for a set of documents",
		Long: `Versions reports, per document, the stored version, the version in force
for the given context, whether a changeover is underway, and whether old
and new configuration are interchangeable.`,
		Example: `  machshop versions work_instruction WI-0042 WI-0043 --date 2026-09-15`,
		Args:    cobra.MinimumNArgs(2),
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

			infos, err := application.service.GetVersionInfo(cmd.Context(), args[0], args[1:], ectx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(infos)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTITY\tCURRENT\tEFFECTIVE\tTRANSITIONING\tINTERCHANGEABLE\tEFFECTIVE DATE")
			for _, info := range infos {
				date := "-"
				if info.EffectiveDate != nil {
					date = info.EffectiveDate.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\t%s\n",
					info.EntityID, info.CurrentVersion, info.EffectiveVersion,
					info.IsTransitioning, info.Interchangeable, date)
			}
			return w.Flush()
		},
	}

	flags.register(cmd)

	return cmd
}
