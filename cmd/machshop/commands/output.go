package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/machshop/machshop/pkg/eco"
)

// printJSON renders any value as indented JSON on stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// contextFlags carries the production-context flags shared by the commands
// that evaluate effectivity.
type contextFlags struct {
	date      string
	serial    string
	workOrder string
	lot       string
}

// register adds the context flags to the command.
func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "production date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.serial, "serial", "", "unit serial number")
	cmd.Flags().StringVar(&f.workOrder, "work-order", "", "work order number")
	cmd.Flags().StringVar(&f.lot, "lot", "", "lot/batch code")
}

// build converts the flags into an effectivity context.
func (f *contextFlags) build() (*eco.EffectivityContext, error) {
	ctx := &eco.EffectivityContext{
		SerialNumber:    f.serial,
		WorkOrderNumber: f.workOrder,
		LotBatch:        f.lot,
	}
	if f.date != "" {
		d, err := time.Parse("2006-01-02", f.date)
		if err != nil {
			return nil, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", f.date)
		}
		ctx.Date = &d
	}
	return ctx, nil
}
