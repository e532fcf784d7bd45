package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/machshop/machshop/pkg/eco"
)

func newTransitionCommand() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "transition <eco-id> <to-status>",
		Short: "Move an ECO along its lifecycle",
		Long: `Transition moves the ECO to the given status. Only the edges of the
lifecycle state machine are legal; REJECTED and CANCELLED are reachable
from every non-terminal status. Completing an ECO records the actual
effective date.`,
		Example: `  machshop transition eco-7f3a SUBMITTED --actor engineer@plant
  machshop transition eco-7f3a CRB_APPROVED --actor board@plant`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := eco.Status(args[1])
			if err := to.Validate(); err != nil {
				return err
			}

			application, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.service.Transition(cmd.Context(), args[0], to, actor); err != nil {
				return err
			}

			fmt.Printf("✓ ECO %s moved to %s\n", args[0], to)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "identity recorded in the audit history")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}
