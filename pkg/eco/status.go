package eco

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle state of an engineering change order.
type Status string

const (
	// StatusDraft indicates the ECO is being authored and is freely editable.
	StatusDraft Status = "DRAFT"

	// StatusSubmitted indicates the ECO has been handed to the change process.
	StatusSubmitted Status = "SUBMITTED"

	// StatusCRBReview indicates the change review board is evaluating the ECO.
	StatusCRBReview Status = "CRB_REVIEW"

	// StatusCRBApproved indicates the review board approved the change.
	StatusCRBApproved Status = "CRB_APPROVED"

	// StatusImplementation indicates the change is being rolled out to production.
	StatusImplementation Status = "IMPLEMENTATION"

	// StatusVerification indicates roll-out is done and is being verified.
	StatusVerification Status = "VERIFICATION"

	// StatusCompleted indicates the change is fully in effect. Terminal.
	StatusCompleted Status = "COMPLETED"

	// StatusRejected indicates the change was turned down. Terminal.
	StatusRejected Status = "REJECTED"

	// StatusCancelled indicates the change was withdrawn. Terminal.
	StatusCancelled Status = "CANCELLED"
)

// transitions is the single source of truth for legal status edges.
// Rejection and cancellation are reachable from every non-terminal state;
// terminal states have no outgoing edges.
var transitions = map[Status][]Status{
	StatusDraft:          {StatusSubmitted, StatusRejected, StatusCancelled},
	StatusSubmitted:      {StatusCRBReview, StatusRejected, StatusCancelled},
	StatusCRBReview:      {StatusCRBApproved, StatusRejected, StatusCancelled},
	StatusCRBApproved:    {StatusImplementation, StatusRejected, StatusCancelled},
	StatusImplementation: {StatusVerification, StatusRejected, StatusCancelled},
	StatusVerification:   {StatusCompleted, StatusRejected, StatusCancelled},
	StatusCompleted:      {},
	StatusRejected:       {},
	StatusCancelled:      {},
}

// IsTerminal returns true if the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// IsActiveProduction returns true if ECOs in this status are candidates
// for effectivity evaluation and version resolution.
func (s Status) IsActiveProduction() bool {
	return s == StatusCRBApproved || s == StatusImplementation || s == StatusCompleted
}

// IsApproved returns true once the review board has signed off on the change.
func (s Status) IsApproved() bool {
	return s == StatusCRBApproved || s == StatusImplementation ||
		s == StatusVerification || s == StatusCompleted
}

// CanTransition reports whether the edge from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// CheckTransition returns a state error identifying the illegal (from, to)
// pair when the edge is not in the transition table. It never clamps or no-ops.
func (s Status) CheckTransition(target Status) error {
	if err := target.Validate(); err != nil {
		return NewStateError(err.Error(), s).WithCode(ErrCodeIllegalTransition)
	}
	if !s.CanTransition(target) {
		return NewStateError(
			fmt.Sprintf("illegal status transition %s -> %s", s, target), s).
			WithCode(ErrCodeIllegalTransition).
			WithDetail("target_status", string(target))
	}
	return nil
}

// Validate checks if the status is a known lifecycle state.
func (s Status) Validate() error {
	if _, ok := transitions[s]; !ok {
		return fmt.Errorf("invalid ECO status: %s", s)
	}
	return nil
}

// ActiveProductionStatuses returns the statuses eligible as effectivity
// candidates, in lifecycle order.
func ActiveProductionStatuses() []Status {
	return []Status{StatusCRBApproved, StatusImplementation, StatusCompleted}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Status(str)
	return s.Validate()
}

// Priority represents the urgency tier of an ECO. It indexes the base
// transition period used by the transition planner.
type Priority string

const (
	// PriorityEmergency indicates a safety or line-down change. Shortest cutover.
	PriorityEmergency Priority = "EMERGENCY"

	// PriorityHigh indicates an urgent change with schedule pressure.
	PriorityHigh Priority = "HIGH"

	// PriorityMedium indicates a routine change.
	PriorityMedium Priority = "MEDIUM"

	// PriorityLow indicates an opportunistic change with no schedule pressure.
	PriorityLow Priority = "LOW"
)

// Validate checks if the priority is a known tier.
func (p Priority) Validate() error {
	switch p {
	case PriorityEmergency, PriorityHigh, PriorityMedium, PriorityLow:
		return nil
	default:
		return fmt.Errorf("invalid ECO priority: %s", p)
	}
}

// BaseTransitionDays returns the baseline transition period for the tier.
// Unknown tiers get the most conservative baseline.
func (p Priority) BaseTransitionDays() int {
	switch p {
	case PriorityEmergency:
		return 7
	case PriorityHigh:
		return 14
	case PriorityMedium:
		return 30
	default:
		return 60
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*p = Priority(str)
	return p.Validate()
}

// TaskStatus represents the state of an implementation checklist task.
type TaskStatus string

const (
	// TaskStatusOpen indicates the task has not been started.
	TaskStatusOpen TaskStatus = "OPEN"

	// TaskStatusInProgress indicates the task is being worked.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusCompleted indicates the task is done.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusSkipped indicates the task was waived.
	TaskStatusSkipped TaskStatus = "SKIPPED"
)

// IsDone returns true when the task no longer blocks effectivity readiness.
func (t TaskStatus) IsDone() bool {
	return t == TaskStatusCompleted || t == TaskStatusSkipped
}

// Validate checks if the task status is valid.
func (t TaskStatus) Validate() error {
	switch t {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusSkipped:
		return nil
	default:
		return fmt.Errorf("invalid task status: %s", t)
	}
}
