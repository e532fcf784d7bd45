package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDocumentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Manage the local document master",
	}

	cmd.AddCommand(newDocumentSetCommand())
	cmd.AddCommand(newDocumentGetCommand())

	return cmd
}

func newDocumentSetCommand() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "set <document-type> <document-id> <version>",
		Short: "Record a document's released version",
		Example: `  machshop document set work_instruction WI-0042 1.2.0
  machshop document set drawing DWG-44 2.0.0 --title "Bracket drawing"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.store.UpsertDocument(cmd.Context(), args[0], args[1], title, args[2]); err != nil {
				return err
			}

			fmt.Printf("✓ %s/%s is now at version %s\n", args[0], args[1], args[2])
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "document title")

	return cmd
}

func newDocumentGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <document-type> <document-id>",
		Short:   "Show a document's stored version",
		Example: `  machshop document get work_instruction WI-0042`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			version, err := application.store.CurrentVersion(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]string{
					"document_type": args[0],
					"document_id":   args[1],
					"version":       version,
				})
			}
			fmt.Println(version)
			return nil
		},
	}

	return cmd
}
