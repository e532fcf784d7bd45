package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/machshop/machshop/pkg/eco"
)

func newCreateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ECO from a JSON definition",
		Long: `Create an engineering change order from a JSON file. The ECO starts in
DRAFT with no effectivity; configure effectivity with set-effectivity once
the change is ready.`,
		Example: `  machshop create --file eco.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read ECO file: %w", err)
			}

			var e eco.ECO
			if err := json.Unmarshal(data, &e); err != nil {
				return fmt.Errorf("failed to parse ECO file: %w", err)
			}

			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			if e.Status == "" {
				e.Status = eco.StatusDraft
			}
			if err := e.Status.Validate(); err != nil {
				return err
			}
			if e.Priority == "" {
				e.Priority = eco.PriorityMedium
			}
			if err := e.Priority.Validate(); err != nil {
				return err
			}
			if e.Number == "" {
				return fmt.Errorf("eco number is required")
			}

			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.store.CreateECO(cmd.Context(), &e); err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(&e)
			}
			fmt.Printf("✓ Created ECO %s (%s) in status %s\n", e.Number, e.ID, e.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the ECO definition")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
