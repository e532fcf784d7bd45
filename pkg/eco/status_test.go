package eco

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"draft to submitted", StatusDraft, StatusSubmitted, true},
		{"submitted to review", StatusSubmitted, StatusCRBReview, true},
		{"review to approved", StatusCRBReview, StatusCRBApproved, true},
		{"approved to implementation", StatusCRBApproved, StatusImplementation, true},
		{"implementation to verification", StatusImplementation, StatusVerification, true},
		{"verification to completed", StatusVerification, StatusCompleted, true},
		{"draft to rejected", StatusDraft, StatusRejected, true},
		{"draft to cancelled", StatusDraft, StatusCancelled, true},
		{"verification to rejected", StatusVerification, StatusRejected, true},
		{"verification to cancelled", StatusVerification, StatusCancelled, true},
		{"no skipping review", StatusDraft, StatusCRBApproved, false},
		{"no skipping implementation", StatusCRBApproved, StatusCompleted, false},
		{"no going backwards", StatusCRBReview, StatusDraft, false},
		{"no reopening completed", StatusCompleted, StatusDraft, false},
		{"no leaving rejected", StatusRejected, StatusSubmitted, false},
		{"no leaving cancelled", StatusCancelled, StatusDraft, false},
		{"no self transition", StatusDraft, StatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := StatusDraft.CheckTransition(StatusCompleted)
	if err == nil {
		t.Fatal("expected error for illegal transition")
	}
	if !IsState(err) {
		t.Errorf("expected state error, got %v", err)
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expected classified error")
	}
	if e.Code != ErrCodeIllegalTransition {
		t.Errorf("expected code %s, got %s", ErrCodeIllegalTransition, e.Code)
	}
	if e.Details["current_status"] != string(StatusDraft) {
		t.Errorf("expected current status in details, got %v", e.Details)
	}
	if e.Details["target_status"] != string(StatusCompleted) {
		t.Errorf("expected target status in details, got %v", e.Details)
	}
}

func TestCheckTransitionUnknownTarget(t *testing.T) {
	err := StatusDraft.CheckTransition(Status("BOGUS"))
	if err == nil {
		t.Fatal("expected error for unknown target status")
	}
	if !IsState(err) {
		t.Errorf("expected state error, got %v", err)
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminals := []Status{StatusCompleted, StatusRejected, StatusCancelled}
	all := []Status{
		StatusDraft, StatusSubmitted, StatusCRBReview, StatusCRBApproved,
		StatusImplementation, StatusVerification, StatusCompleted,
		StatusRejected, StatusCancelled,
	}

	for _, terminal := range terminals {
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, target := range all {
			if terminal.CanTransition(target) {
				t.Errorf("terminal %s must have no edge to %s", terminal, target)
			}
		}
	}

	for _, s := range []Status{StatusDraft, StatusSubmitted, StatusCRBReview,
		StatusCRBApproved, StatusImplementation, StatusVerification} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
		if !s.CanTransition(StatusRejected) || !s.CanTransition(StatusCancelled) {
			t.Errorf("%s must be rejectable and cancellable", s)
		}
	}
}

func TestIsActiveProduction(t *testing.T) {
	active := map[Status]bool{
		StatusCRBApproved:    true,
		StatusImplementation: true,
		StatusCompleted:      true,
	}

	for _, s := range []Status{StatusDraft, StatusSubmitted, StatusCRBReview,
		StatusCRBApproved, StatusImplementation, StatusVerification,
		StatusCompleted, StatusRejected, StatusCancelled} {
		if got := s.IsActiveProduction(); got != active[s] {
			t.Errorf("IsActiveProduction(%s) = %v, want %v", s, got, active[s])
		}
	}

	if got := ActiveProductionStatuses(); len(got) != 3 {
		t.Errorf("expected 3 active production statuses, got %v", got)
	}
}

func TestIsApproved(t *testing.T) {
	approved := map[Status]bool{
		StatusCRBApproved:    true,
		StatusImplementation: true,
		StatusVerification:   true,
		StatusCompleted:      true,
	}

	for _, s := range []Status{StatusDraft, StatusSubmitted, StatusCRBReview,
		StatusCRBApproved, StatusImplementation, StatusVerification,
		StatusCompleted, StatusRejected, StatusCancelled} {
		if got := s.IsApproved(); got != approved[s] {
			t.Errorf("IsApproved(%s) = %v, want %v", s, got, approved[s])
		}
	}
}

func TestStatusValidate(t *testing.T) {
	if err := StatusDraft.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Status("PENDING").Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusCRBApproved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"CRB_APPROVED"` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var s Status
	if err := json.Unmarshal([]byte(`"IMPLEMENTATION"`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != StatusImplementation {
		t.Errorf("expected %s, got %s", StatusImplementation, s)
	}

	if err := json.Unmarshal([]byte(`"BOGUS"`), &s); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestPriorityBaseTransitionDays(t *testing.T) {
	tests := []struct {
		priority Priority
		days     int
	}{
		{PriorityEmergency, 7},
		{PriorityHigh, 14},
		{PriorityMedium, 30},
		{PriorityLow, 60},
		{Priority("UNKNOWN"), 60},
	}

	for _, tt := range tests {
		if got := tt.priority.BaseTransitionDays(); got != tt.days {
			t.Errorf("BaseTransitionDays(%s) = %d, want %d", tt.priority, got, tt.days)
		}
	}
}

func TestPriorityValidate(t *testing.T) {
	for _, p := range []Priority{PriorityEmergency, PriorityHigh, PriorityMedium, PriorityLow} {
		if err := p.Validate(); err != nil {
			t.Errorf("unexpected error for %s: %v", p, err)
		}
	}
	if err := Priority("CRITICAL").Validate(); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestTaskStatusIsDone(t *testing.T) {
	done := map[TaskStatus]bool{
		TaskStatusCompleted: true,
		TaskStatusSkipped:   true,
	}
	for _, s := range []TaskStatus{TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusSkipped} {
		if got := s.IsDone(); got != done[s] {
			t.Errorf("IsDone(%s) = %v, want %v", s, got, done[s])
		}
	}
}
