package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <eco-id>",
		Short: "Show the audit history of an ECO",
		Long: `History lists the append-only audit trail of an ECO: every status change
and effectivity change, with actor and timestamp, oldest first.`,
		Example: `  machshop history eco-7f3a`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := application.store.ListHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No history recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tFROM\tTO\tACTOR\tDETAIL")
			for _, e := range entries {
				from, to := string(e.FromStatus), string(e.ToStatus)
				if from == "" {
					from = "-"
				}
				if to == "" {
					to = "-"
				}
				detail := e.Detail
				if detail == "" {
					detail = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, from, to, e.Actor, detail)
			}
			return w.Flush()
		},
	}

	return cmd
}
