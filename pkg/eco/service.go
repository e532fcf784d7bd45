package eco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/machshop/machshop/pkg/telemetry"
)

// ServiceConfig wires the engine's collaborators.
type ServiceConfig struct {
	// Repository is the ECO persistence surface. Required.
	Repository Repository

	// Documents resolves stored document versions. Required.
	Documents DocumentStore

	// Inventory supplies per-part quantities for transition planning. Required.
	Inventory InventoryGateway

	// Authorizer gates mutations. Nil allows everything.
	Authorizer Authorizer

	// Planner tunes the transition-period risk weighting. Zero value uses
	// the defaults.
	Planner PlannerConfig

	// Logger is the structured logger. Zero value logs are discarded.
	Logger zerolog.Logger

	// Metrics and Events are optional; nil records/publishes nothing.
	Metrics *telemetry.Metrics
	Events  *telemetry.EventPublisher
}

// Service is the engine facade consumed by the surrounding application. All
// operations are request-scoped, synchronous computations; the only write
// paths are SetEffectivity and Transition, both applied as guarded
// conditional updates.
type Service struct {
	repo     Repository
	docs     DocumentStore
	auth     Authorizer
	resolver *Resolver
	planner  *Planner
	validate *validator.Validate
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	events   *telemetry.EventPublisher
}

// Mutating actions carried to the Authorizer.
const (
	ActionSetEffectivity = "eco.set_effectivity"
	ActionTransition     = "eco.transition"
)

// NewService creates the engine facade.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("eco: repository is required")
	}
	if cfg.Documents == nil {
		return nil, fmt.Errorf("eco: document store is required")
	}
	if cfg.Inventory == nil {
		return nil, fmt.Errorf("eco: inventory gateway is required")
	}

	return &Service{
		repo:     cfg.Repository,
		docs:     cfg.Documents,
		auth:     cfg.Authorizer,
		resolver: NewResolver(cfg.Repository, cfg.Documents, cfg.Logger),
		planner:  NewPlanner(cfg.Inventory, cfg.Planner, cfg.Logger),
		validate: validator.New(),
		logger:   cfg.Logger.With().Str("component", "eco-service").Logger(),
		metrics:  cfg.Metrics,
		events:   cfg.Events,
	}, nil
}

// SetEffectivity configures when and under what conditions the ECO's change
// becomes binding. It is the validator-gated setter: the wire form is parsed
// into a typed effectivity, the setter rules are enforced, the write is a
// single conditional update guarded by the status that was read, and an
// immutable history entry is recorded with the write.
func (s *Service) SetEffectivity(ctx context.Context, ecoID string, input SetEffectivityInput) error {
	if err := s.validate.Struct(input); err != nil {
		verr := NewValidationError("invalid set-effectivity input").
			WithCode(ErrCodeMissingEffectivity).
			WithResource(ecoID)
		verr.Err = err
		s.recordError(verr)
		return verr
	}

	if err := s.authorize(ctx, input.Actor, ActionSetEffectivity, ecoID); err != nil {
		return err
	}

	if err := ValidateEffectivityConfig(input.Kind, input.Value); err != nil {
		s.recordError(err)
		return err
	}
	eff, err := ParseEffectivity(input.Kind, input.Value)
	if err != nil {
		s.recordError(err)
		return err
	}

	eco, err := s.repo.GetECO(ctx, ecoID)
	if err != nil {
		s.recordError(err)
		return err
	}

	if err := checkSetterRules(eco, input, time.Now()); err != nil {
		s.recordError(err)
		return err
	}

	update := EffectivityUpdate{
		Effectivity:          eff,
		PlannedEffectiveDate: input.PlannedEffectiveDate,
		IsInterchangeable:    input.IsInterchangeable,
	}
	entry := &HistoryEntry{
		ECOID:     ecoID,
		EventType: EventEffectivitySet,
		Detail:    effectivityChangeDetail(eco.Effectivity, eff, input.PlannedEffectiveDate),
		Actor:     input.Actor,
		Timestamp: time.Now(),
	}
	if err := s.repo.UpdateEffectivity(ctx, ecoID, eco.Status, update, entry); err != nil {
		s.recordError(err)
		return err
	}

	s.metrics.RecordEffectivityUpdate(string(input.Kind))
	_ = s.events.PublishEffectivitySet(ecoID, string(input.Kind), input.Value, input.Actor)

	logger := telemetry.WithActor(telemetry.WithECO(s.logger, eco.ID, eco.Number), input.Actor)
	logger.Info().
		Str("kind", string(input.Kind)).
		Str("value", input.Value).
		Msg("Effectivity configured")

	return nil
}

// Transition moves the ECO along a lifecycle edge. Illegal edges fail with a
// state error naming the (from, to) pair; the write is guarded by the status
// that was read so two concurrent callers cannot both succeed. Completing an
// ECO records the actual effective date.
func (s *Service) Transition(ctx context.Context, ecoID string, to Status, actor string) error {
	if err := s.authorize(ctx, actor, ActionTransition, ecoID); err != nil {
		return err
	}

	eco, err := s.repo.GetECO(ctx, ecoID)
	if err != nil {
		s.recordError(err)
		return err
	}

	if err := eco.Status.CheckTransition(to); err != nil {
		s.recordError(err)
		return err
	}

	var actualEffective *time.Time
	if to == StatusCompleted && eco.ActualEffectiveDate == nil {
		now := time.Now()
		actualEffective = &now
	}

	entry := &HistoryEntry{
		ECOID:      ecoID,
		EventType:  EventStatusChanged,
		FromStatus: eco.Status,
		ToStatus:   to,
		Actor:      actor,
		Timestamp:  time.Now(),
	}
	if err := s.repo.UpdateStatus(ctx, ecoID, eco.Status, to, actualEffective, entry); err != nil {
		s.recordError(err)
		return err
	}

	s.metrics.RecordStatusTransition(string(eco.Status), string(to))
	_ = s.events.PublishStatusChanged(ecoID, string(eco.Status), string(to), actor)

	logger := telemetry.WithActor(telemetry.WithECO(s.logger, eco.ID, eco.Number), actor)
	logger.Info().
		Str("from", string(eco.Status)).
		Str("to", string(to)).
		Msg("ECO status changed")

	return nil
}

// CheckEffectivity reports whether the ECO's change applies to the given
// production context. A missing ECO is surfaced, never treated as
// "not effective".
func (s *Service) CheckEffectivity(ctx context.Context, ecoID string, ectx *EffectivityContext) (bool, error) {
	eco, err := s.repo.GetECO(ctx, ecoID)
	if err != nil {
		s.recordError(err)
		return false, err
	}

	effective := IsEffective(eco, ectx)

	kind := "unset"
	if eco.Effectivity != nil {
		kind = string(eco.Effectivity.Kind())
	}
	s.metrics.RecordEffectivityCheck(kind, effective)

	return effective, nil
}

// GetEffectiveVersion returns the document version in force for the context.
func (s *Service) GetEffectiveVersion(ctx context.Context, entityType, entityID string, ectx *EffectivityContext) (string, error) {
	timer := telemetry.NewTimer()
	res, err := s.resolver.Resolve(ctx, entityType, entityID, ectx)
	if err != nil {
		s.recordError(err)
		return "", err
	}

	s.metrics.RecordVersionResolution(string(res.Source), timer.Duration())
	_ = s.events.PublishVersionResolved(entityType, entityID, res.Version, string(res.Source))

	return res.Version, nil
}

// GetVersionInfo answers a batch version query.
func (s *Service) GetVersionInfo(ctx context.Context, entityType string, entityIDs []string, ectx *EffectivityContext) ([]VersionInfo, error) {
	infos, err := s.resolver.VersionInfo(ctx, entityType, entityIDs, ectx)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return infos, nil
}

// GetTransitionPlan computes the depletion/cutover schedule for the ECO.
func (s *Service) GetTransitionPlan(ctx context.Context, ecoID string) (*TransitionPlan, error) {
	eco, err := s.repo.GetECO(ctx, ecoID)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	plan, err := s.planner.Plan(ctx, eco)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.metrics.RecordTransitionPlan()
	_ = s.events.PublishPlanComputed(ecoID, plan.TransitionPeriodDays, plan.AffectedInventory.TotalImpactValue)

	return plan, nil
}

// ValidateEffectivity runs the structural/semantic checks on the stored ECO.
func (s *Service) ValidateEffectivity(ctx context.Context, ecoID string) (*ValidationResult, error) {
	eco, err := s.repo.GetECO(ctx, ecoID)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	result := ValidateEffectivity(eco)
	if !result.IsValid {
		s.metrics.RecordValidationFailure(ErrCodeBadEffectivityValue)
	}
	return &result, nil
}

// authorize consults the optional authorizer and wraps denials as
// permission errors.
func (s *Service) authorize(ctx context.Context, actor, action, ecoID string) error {
	if s.auth == nil {
		return nil
	}
	if err := s.auth.Authorize(ctx, actor, action, ecoID); err != nil {
		if IsPermission(err) {
			s.recordError(err)
			return err
		}
		perr := NewPermissionError("actor is not allowed to perform this action", actor).
			WithOperation(action).
			WithResource(ecoID)
		perr.Err = err
		s.recordError(perr)
		return perr
	}
	return nil
}

// recordError counts classified errors; unclassified ones count as internal.
func (s *Service) recordError(err error) {
	var e *Error
	if errors.As(err, &e) {
		s.metrics.RecordError(string(e.Kind), e.Code)
		return
	}
	s.metrics.RecordError(string(ErrorKindInternal), "")
}

// effectivityChangeDetail renders the before/after payload for history.
func effectivityChangeDetail(old, updated *Effectivity, planned *time.Time) string {
	type wire struct {
		Kind  string `json:"kind,omitempty"`
		Value string `json:"value,omitempty"`
	}
	payload := struct {
		Old     *wire  `json:"old,omitempty"`
		New     *wire  `json:"new"`
		Planned string `json:"planned_effective_date,omitempty"`
	}{}
	if old != nil {
		payload.Old = &wire{Kind: string(old.Kind()), Value: old.Value()}
	}
	payload.New = &wire{Kind: string(updated.Kind()), Value: updated.Value()}
	if planned != nil {
		payload.Planned = planned.Format(dateLayout)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}
