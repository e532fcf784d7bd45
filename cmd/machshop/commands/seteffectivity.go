package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/machshop/machshop/pkg/eco"
)

func newSetEffectivityCommand() *cobra.Command {
	var (
		kind            string
		value           string
		planned         string
		interchangeable bool
		actor           string
	)

	cmd := &cobra.Command{
		Use:   "set-effectivity <eco-id>",
		Short: "Configure when an ECO's change becomes binding",
		Long: `Set-effectivity configures the condition under which the ECO applies:
a calendar date, a serial-number or work-order cutover, a lot/batch code,
or IMMEDIATE for an already-completed change. The write is rejected on
terminal ECOs, for past planned dates, and for IMMEDIATE before approval.`,
		Example: `  machshop set-effectivity eco-7f3a --kind BY_DATE --value 2026-09-15 --actor engineer@plant
  machshop set-effectivity eco-7f3a --kind BY_SERIAL_NUMBER --value 1000 --actor engineer@plant`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := eco.SetEffectivityInput{
				Kind:  eco.EffectivityKind(kind),
				Value: value,
				Actor: actor,
			}
			if planned != "" {
				d, err := time.Parse("2006-01-02", planned)
				if err != nil {
					return fmt.Errorf("invalid --planned %q, expected YYYY-MM-DD", planned)
				}
				input.PlannedEffectiveDate = &d
			}
			if cmd.Flags().Changed("interchangeable") {
				input.IsInterchangeable = &interchangeable
			}

			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.service.SetEffectivity(cmd.Context(), args[0], input); err != nil {
				return err
			}

			fmt.Printf("✓ Effectivity set: %s", kind)
			if value != "" {
				fmt.Printf(" %s", value)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "effectivity kind (BY_DATE, BY_SERIAL_NUMBER, BY_WORK_ORDER, BY_LOT_BATCH, IMMEDIATE)")
	cmd.Flags().StringVar(&value, "value", "", "effectivity value (empty for IMMEDIATE)")
	cmd.Flags().StringVar(&planned, "planned", "", "planned effective date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&interchangeable, "interchangeable", true, "old and new configuration may coexist")
	cmd.Flags().StringVar(&actor, "actor", "", "identity recorded in the audit history")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}
