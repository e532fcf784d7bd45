package eco

import (
	"time"
)

// ECO is an engineering change order: a proposed and tracked change to a
// design, process, or document, together with the condition under which it
// becomes binding in production.
type ECO struct {
	// ID is the unique identifier of the ECO.
	ID string `json:"id"`

	// Number is the human-readable change number, e.g. "ECO-2024-0042".
	Number string `json:"number"`

	// Title is a short description of the change.
	Title string `json:"title"`

	// Description elaborates on the change and its rationale.
	Description string `json:"description,omitempty"`

	// Status is the lifecycle state, governed by the status state machine.
	Status Status `json:"status"`

	// Priority is the urgency tier driving the transition period.
	Priority Priority `json:"priority"`

	// Effectivity is the condition under which the change applies.
	// Nil until set through the validator-gated setter.
	Effectivity *Effectivity `json:"effectivity,omitempty"`

	// IsInterchangeable states whether old and new configuration may coexist
	// in inventory and field use without distinction.
	IsInterchangeable bool `json:"is_interchangeable"`

	// PlannedEffectiveDate is when the change is scheduled to take effect.
	PlannedEffectiveDate *time.Time `json:"planned_effective_date,omitempty"`

	// ActualEffectiveDate is when the change actually took effect.
	ActualEffectiveDate *time.Time `json:"actual_effective_date,omitempty"`

	// AffectedParts are the part references changed by this ECO.
	AffectedParts []AffectedPart `json:"affected_parts,omitempty"`

	// AffectedDocuments are the document references changed by this ECO,
	// in the order they were attached, each carrying the target version.
	AffectedDocuments []AffectedDocument `json:"affected_documents,omitempty"`

	// Tasks is the implementation checklist.
	Tasks []Task `json:"tasks,omitempty"`

	// CreatedBy is the identity of the requester.
	CreatedBy string `json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveDate returns the date the change took or will take effect:
// the actual date when recorded, falling back to the planned date.
func (e *ECO) EffectiveDate() *time.Time {
	if e.ActualEffectiveDate != nil {
		return e.ActualEffectiveDate
	}
	return e.PlannedEffectiveDate
}

// TargetVersionFor returns the recorded target version for the given entity
// reference, and whether this ECO touches it at all.
func (e *ECO) TargetVersionFor(entityType, entityID string) (string, bool) {
	for _, doc := range e.AffectedDocuments {
		if doc.DocumentType == entityType && doc.DocumentID == entityID {
			return doc.TargetVersion, true
		}
	}
	return "", false
}

// OpenTasks returns the implementation tasks that are not yet done.
func (e *ECO) OpenTasks() []Task {
	var open []Task
	for _, t := range e.Tasks {
		if !t.Status.IsDone() {
			open = append(open, t)
		}
	}
	return open
}

// AffectedPart is a part reference changed by an ECO.
type AffectedPart struct {
	// PartNumber identifies the part in the part master.
	PartNumber string `json:"part_number"`

	// OldRevision is the revision being superseded.
	OldRevision string `json:"old_revision,omitempty"`

	// NewRevision is the revision introduced by the change.
	NewRevision string `json:"new_revision,omitempty"`
}

// AffectedDocument is a document reference changed by an ECO.
type AffectedDocument struct {
	// DocumentType is the document repository the reference lives in,
	// e.g. "work_instruction".
	DocumentType string `json:"document_type"`

	// DocumentID identifies the document.
	DocumentID string `json:"document_id"`

	// TargetVersion is the version the document moves to under this change.
	// Empty until the new revision is authored; the validator surfaces this
	// as a readiness warning.
	TargetVersion string `json:"target_version,omitempty"`
}

// Task is one entry of an ECO's implementation checklist.
type Task struct {
	// ID is the unique identifier of the task.
	ID string `json:"id"`

	// Description says what has to be done.
	Description string `json:"description"`

	// Status is the checklist state.
	Status TaskStatus `json:"status"`

	// Assignee is the identity responsible for the task.
	Assignee string `json:"assignee,omitempty"`

	// Sequence orders tasks within the checklist.
	Sequence int `json:"sequence"`
}

// HistoryEntry is an immutable audit record appended on every status change
// or effectivity change. Entries are never updated or deleted.
type HistoryEntry struct {
	// ID is assigned by the store on append.
	ID int64 `json:"id,omitempty"`

	// ECOID is the change order the entry belongs to.
	ECOID string `json:"eco_id"`

	// EventType classifies the event, e.g. "status_changed", "effectivity_set".
	EventType string `json:"event_type"`

	// FromStatus and ToStatus record the edge for status changes.
	FromStatus Status `json:"from_status,omitempty"`
	ToStatus   Status `json:"to_status,omitempty"`

	// Detail is a free-form payload describing the event.
	Detail string `json:"detail,omitempty"`

	// Actor is the identity that caused the event.
	Actor string `json:"actor"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// History event types.
const (
	EventStatusChanged  = "status_changed"
	EventEffectivitySet = "effectivity_set"
)

// PartInventory is the per-part quantity and value breakdown consumed by the
// transition planner. Quantities are supplied by the inventory collaborator;
// the engine never computes them from scratch.
type PartInventory struct {
	// PartNumber identifies the part.
	PartNumber string `json:"part_number"`

	// WorkInProcess is the quantity committed to partially built units.
	WorkInProcess float64 `json:"work_in_process"`

	// FinishedGoods is the quantity in completed, sellable units.
	FinishedGoods float64 `json:"finished_goods"`

	// RawMaterial is the uncommitted stock quantity.
	RawMaterial float64 `json:"raw_material"`

	// UnitCost is the standard cost per unit, used for impact valuation.
	UnitCost float64 `json:"unit_cost"`
}

// TotalQuantity returns the summed quantity across all three buckets.
func (p PartInventory) TotalQuantity() float64 {
	return p.WorkInProcess + p.FinishedGoods + p.RawMaterial
}

// ImpactValue returns the financial exposure of the part's on-hand stock.
func (p PartInventory) ImpactValue() float64 {
	return p.TotalQuantity() * p.UnitCost
}

// InventoryImpact is the coarse inventory breakdown for a whole ECO.
type InventoryImpact struct {
	// Parts is the per-part breakdown, one entry per affected part.
	Parts []PartInventory `json:"parts"`

	// TotalWorkInProcess, TotalFinishedGoods and TotalRawMaterial sum the
	// respective buckets across parts.
	TotalWorkInProcess float64 `json:"total_work_in_process"`
	TotalFinishedGoods float64 `json:"total_finished_goods"`
	TotalRawMaterial   float64 `json:"total_raw_material"`

	// TotalImpactValue is the summed financial exposure.
	TotalImpactValue float64 `json:"total_impact_value"`
}

// TransitionException is a pre-approved deviation permitting continued use of
// the prior configuration past cutover for a specific entity. Absent an
// approval workflow this list is always empty; it exists as an extension point.
type TransitionException struct {
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// TransitionPlan is the depletion/cutover schedule for an approved ECO. It is
// derived from already-fetched data and never persisted, so it cannot drift
// from the ECO it was computed from.
type TransitionPlan struct {
	// ECOID is the change order the plan was derived from.
	ECOID string `json:"eco_id"`

	// OldVersionDepletion is when stock built to the old configuration must
	// be depleted. Anchored to the planned effective date.
	OldVersionDepletion *time.Time `json:"old_version_depletion,omitempty"`

	// NewVersionStart is when production switches to the new configuration.
	NewVersionStart *time.Time `json:"new_version_start,omitempty"`

	// TransitionPeriodDays is the risk-weighted length of the changeover
	// window: a priority-indexed base, extended for high financial exposure
	// and for non-interchangeable parts.
	TransitionPeriodDays int `json:"transition_period_days"`

	// AffectedInventory is the inventory breakdown across affected parts.
	AffectedInventory InventoryImpact `json:"affected_inventory"`

	// Exceptions lists approved deviations past cutover.
	Exceptions []TransitionException `json:"exceptions"`
}

// VersionInfo is the per-entity answer of GetVersionInfo.
type VersionInfo struct {
	// EntityID identifies the document the row describes.
	EntityID string `json:"entity_id"`

	// CurrentVersion is the entity's stored version.
	CurrentVersion string `json:"current_version"`

	// EffectiveVersion is the version in force for the queried context.
	EffectiveVersion string `json:"effective_version"`

	// IsTransitioning is true when an active change currently supersedes the
	// stored version.
	IsTransitioning bool `json:"is_transitioning"`

	// EffectiveDate is the winning change's effective date, if any.
	EffectiveDate *time.Time `json:"effective_date,omitempty"`

	// Interchangeable reports the winning change's interchangeability.
	// True when no change is in force.
	Interchangeable bool `json:"interchangeable"`
}

// BaselineVersion is returned for entities unknown to every collaborator.
const BaselineVersion = "1.0.0"

// ValidationResult is the outcome of the effectivity configuration check.
type ValidationResult struct {
	// IsValid is true when no hard errors were found.
	IsValid bool `json:"is_valid"`

	// Errors are hard failures that block any downstream use.
	Errors []string `json:"errors"`

	// Warnings surface readiness gaps that do not block.
	Warnings []string `json:"warnings"`
}

// SetEffectivityInput is the payload of the validator-gated setter.
type SetEffectivityInput struct {
	// Kind and Value are the wire form of the effectivity condition.
	Kind  EffectivityKind `json:"kind" validate:"required"`
	Value string          `json:"value"`

	// PlannedEffectiveDate must not be in the past.
	PlannedEffectiveDate *time.Time `json:"planned_effective_date,omitempty"`

	// IsInterchangeable updates the coexistence flag.
	IsInterchangeable *bool `json:"is_interchangeable,omitempty"`

	// Actor is the identity requesting the change, recorded in history.
	Actor string `json:"actor" validate:"required"`
}
