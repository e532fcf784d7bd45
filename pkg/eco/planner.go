package eco

import (
	"context"

	"github.com/rs/zerolog"
)

// PlannerConfig tunes the risk weighting of the transition period.
type PlannerConfig struct {
	// HighImpactThreshold is the financial exposure above which the
	// transition period is extended.
	HighImpactThreshold float64

	// HighImpactExtensionDays is added when the total impact value exceeds
	// the threshold.
	HighImpactExtensionDays int

	// NonInterchangeableExtensionDays is added when old and new configuration
	// cannot be mixed, since existing stock must deplete before cutover.
	NonInterchangeableExtensionDays int
}

// DefaultPlannerConfig returns the stock risk weighting.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		HighImpactThreshold:             100000,
		HighImpactExtensionDays:         15,
		NonInterchangeableExtensionDays: 30,
	}
}

// Planner computes the depletion/cutover schedule for a change order. It is
// a pure computation over the ECO and inventory figures fetched from the
// gateway; plans are derived on demand and never persisted.
type Planner struct {
	inventory InventoryGateway
	cfg       PlannerConfig
	logger    zerolog.Logger
}

// NewPlanner creates a planner over the given inventory gateway. Unset
// config fields fall back to their defaults individually, so tuning one
// knob does not reset the others.
func NewPlanner(inventory InventoryGateway, cfg PlannerConfig, logger zerolog.Logger) *Planner {
	defaults := DefaultPlannerConfig()
	if cfg.HighImpactThreshold <= 0 {
		cfg.HighImpactThreshold = defaults.HighImpactThreshold
	}
	if cfg.HighImpactExtensionDays <= 0 {
		cfg.HighImpactExtensionDays = defaults.HighImpactExtensionDays
	}
	if cfg.NonInterchangeableExtensionDays <= 0 {
		cfg.NonInterchangeableExtensionDays = defaults.NonInterchangeableExtensionDays
	}
	return &Planner{
		inventory: inventory,
		cfg:       cfg,
		logger:    logger.With().Str("component", "transition-planner").Logger(),
	}
}

// Plan computes the transition plan for the ECO.
//
// The transition period starts from the priority-indexed base (7 days for
// EMERGENCY up to 60 for LOW) and is extended when the financial exposure of
// affected inventory exceeds the configured threshold, and again when the
// parts are not interchangeable. Old-version depletion and new-version start
// are both anchored to the planned effective date.
func (p *Planner) Plan(ctx context.Context, eco *ECO) (*TransitionPlan, error) {
	impact, err := p.affectedInventory(ctx, eco)
	if err != nil {
		return nil, err
	}

	days := eco.Priority.BaseTransitionDays()
	if impact.TotalImpactValue > p.cfg.HighImpactThreshold {
		days += p.cfg.HighImpactExtensionDays
	}
	if !eco.IsInterchangeable {
		days += p.cfg.NonInterchangeableExtensionDays
	}

	plan := &TransitionPlan{
		ECOID:                eco.ID,
		OldVersionDepletion:  eco.PlannedEffectiveDate,
		NewVersionStart:      eco.PlannedEffectiveDate,
		TransitionPeriodDays: days,
		AffectedInventory:    *impact,
		Exceptions:           []TransitionException{},
	}

	p.logger.Debug().
		Str("eco_id", eco.ID).
		Str("priority", string(eco.Priority)).
		Bool("interchangeable", eco.IsInterchangeable).
		Float64("total_impact_value", impact.TotalImpactValue).
		Int("transition_days", days).
		Msg("Computed transition plan")

	return plan, nil
}

// affectedInventory queries the gateway per affected part and sums the
// buckets. Parts unknown to the gateway are surfaced, never skipped.
func (p *Planner) affectedInventory(ctx context.Context, eco *ECO) (*InventoryImpact, error) {
	impact := &InventoryImpact{Parts: make([]PartInventory, 0, len(eco.AffectedParts))}

	for _, part := range eco.AffectedParts {
		inv, err := p.inventory.PartInventory(ctx, part.PartNumber)
		if err != nil {
			return nil, err
		}

		impact.Parts = append(impact.Parts, *inv)
		impact.TotalWorkInProcess += inv.WorkInProcess
		impact.TotalFinishedGoods += inv.FinishedGoods
		impact.TotalRawMaterial += inv.RawMaterial
		impact.TotalImpactValue += inv.ImpactValue()
	}

	return impact, nil
}
