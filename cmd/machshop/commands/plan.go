package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <eco-id>",
		Short: "Compute the transition plan for an ECO",
		Long: `Plan computes the changeover schedule for an ECO: a transition period
indexed by priority, extended when the affected inventory's financial
exposure is high or when old and new parts cannot be mixed. Inventory
figures come from the ERP when one is configured.`,
		Example: `  machshop plan eco-7f3a
  machshop plan eco-7f3a --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := application.service.GetTransitionPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(plan)
			}

			fmt.Printf("Transition plan for %s\n\n", plan.ECOID)
			fmt.Printf("  Transition period:   %d days\n", plan.TransitionPeriodDays)
			if plan.NewVersionStart != nil {
				fmt.Printf("  New version start:   %s\n", plan.NewVersionStart.Format("2006-01-02"))
				fmt.Printf("  Old stock depletion: %s\n", plan.OldVersionDepletion.Format("2006-01-02"))
			} else {
				fmt.Println("  New version start:   not scheduled (no planned effective date)")
			}

			inv := plan.AffectedInventory
			fmt.Printf("\n  Affected inventory (%d part(s)):\n", len(inv.Parts))
			fmt.Printf("    Work in process: %.0f\n", inv.TotalWorkInProcess)
			fmt.Printf("    Finished goods:  %.0f\n", inv.TotalFinishedGoods)
			fmt.Printf("    Raw material:    %.0f\n", inv.TotalRawMaterial)
			fmt.Printf("    Impact value:    %.2f\n", inv.TotalImpactValue)
			return nil
		},
	}

	return cmd
}
