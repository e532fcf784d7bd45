package eco

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// memRepo is a mutable in-memory repository enforcing the status guard.
type memRepo struct {
	ecos    map[string]*ECO
	history []*HistoryEntry
}

func newMemRepo(ecos ...*ECO) *memRepo {
	r := &memRepo{ecos: make(map[string]*ECO)}
	for _, e := range ecos {
		r.ecos[e.ID] = e
	}
	return r
}

func (r *memRepo) GetECO(_ context.Context, id string) (*ECO, error) {
	e, ok := r.ecos[id]
	if !ok {
		return nil, NewNotFoundError("ECO not found", id).WithCode(ErrCodeECONotFound)
	}
	copied := *e
	return &copied, nil
}

func (r *memRepo) ListCandidates(_ context.Context, entityType, entityID string, statuses []Status) ([]*ECO, error) {
	allowed := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []*ECO
	for _, e := range r.ecos {
		if !allowed[e.Status] {
			continue
		}
		if _, touches := e.TargetVersionFor(entityType, entityID); touches {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateEffectivity(_ context.Context, id string, expected Status, update EffectivityUpdate, entry *HistoryEntry) error {
	e, ok := r.ecos[id]
	if !ok {
		return NewNotFoundError("ECO not found", id).WithCode(ErrCodeECONotFound)
	}
	if e.Status != expected {
		return NewStateError("concurrent update", e.Status).WithCode(ErrCodeConcurrentUpdate)
	}
	e.Effectivity = update.Effectivity
	if update.PlannedEffectiveDate != nil {
		e.PlannedEffectiveDate = update.PlannedEffectiveDate
	}
	if update.IsInterchangeable != nil {
		e.IsInterchangeable = *update.IsInterchangeable
	}
	if entry != nil {
		r.history = append(r.history, entry)
	}
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, from, to Status, actualEffective *time.Time, entry *HistoryEntry) error {
	e, ok := r.ecos[id]
	if !ok {
		return NewNotFoundError("ECO not found", id).WithCode(ErrCodeECONotFound)
	}
	if e.Status != from {
		return NewStateError("concurrent update", e.Status).WithCode(ErrCodeConcurrentUpdate)
	}
	e.Status = to
	if actualEffective != nil {
		e.ActualEffectiveDate = actualEffective
	}
	if entry != nil {
		r.history = append(r.history, entry)
	}
	return nil
}

func (r *memRepo) AppendHistory(_ context.Context, entry *HistoryEntry) error {
	r.history = append(r.history, entry)
	return nil
}

// denyAuth rejects a configured actor.
type denyAuth struct {
	denied string
}

func (a *denyAuth) Authorize(_ context.Context, actor, _, _ string) error {
	if actor == a.denied {
		return fmt.Errorf("actor %s is blocked", actor)
	}
	return nil
}

func newTestService(t *testing.T, repo *memRepo, auth Authorizer) *Service {
	t.Helper()

	svc, err := NewService(ServiceConfig{
		Repository: repo,
		Documents:  &fakeDocs{versions: map[string]string{"drawing/DWG-44": "1.2.0"}},
		Inventory:  &fakeInventory{parts: map[string]PartInventory{}},
		Authorizer: auth,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Error("expected error without repository")
	}
	if _, err := NewService(ServiceConfig{Repository: newMemRepo()}); err == nil {
		t.Error("expected error without document store")
	}
	if _, err := NewService(ServiceConfig{
		Repository: newMemRepo(),
		Documents:  &fakeDocs{},
	}); err == nil {
		t.Error("expected error without inventory gateway")
	}
}

func TestSetEffectivity(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Number: "ECO-2024-001", Status: StatusDraft, Priority: PriorityHigh})
	svc := newTestService(t, repo, nil)

	planned := time.Now().AddDate(0, 1, 0)
	interchangeable := false
	err := svc.SetEffectivity(context.Background(), "eco-1", SetEffectivityInput{
		Kind:                 EffectivityBySerialNumber,
		Value:                "1000",
		PlannedEffectiveDate: &planned,
		IsInterchangeable:    &interchangeable,
		Actor:                "engineer@machshop",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := repo.ecos["eco-1"]
	if e.Effectivity == nil || e.Effectivity.Value() != "1000" {
		t.Errorf("effectivity not written: %+v", e.Effectivity)
	}
	if e.IsInterchangeable {
		t.Error("interchangeable flag not written")
	}

	if len(repo.history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(repo.history))
	}
	entry := repo.history[0]
	if entry.EventType != EventEffectivitySet || entry.Actor != "engineer@machshop" {
		t.Errorf("unexpected history entry: %+v", entry)
	}
	if entry.Detail == "" {
		t.Error("history entry must carry the change detail")
	}
}

func TestSetEffectivityValidatesInput(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusDraft})
	svc := newTestService(t, repo, nil)

	tests := []struct {
		name  string
		input SetEffectivityInput
	}{
		{"missing actor", SetEffectivityInput{Kind: EffectivityByDate, Value: "2026-09-15"}},
		{"missing kind", SetEffectivityInput{Value: "2026-09-15", Actor: "a"}},
		{"missing value", SetEffectivityInput{Kind: EffectivityByDate, Actor: "a"}},
		{"bad date", SetEffectivityInput{Kind: EffectivityByDate, Value: "soon", Actor: "a"}},
		{"bad serial", SetEffectivityInput{Kind: EffectivityBySerialNumber, Value: "SN1", Actor: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetEffectivity(context.Background(), "eco-1", tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	if repo.ecos["eco-1"].Effectivity != nil {
		t.Error("rejected input must not write")
	}
	if len(repo.history) != 0 {
		t.Error("rejected input must not append history")
	}
}

func TestSetEffectivityFrozenOnTerminal(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusRejected})
	svc := newTestService(t, repo, nil)

	err := svc.SetEffectivity(context.Background(), "eco-1", SetEffectivityInput{
		Kind:  EffectivityBySerialNumber,
		Value: "1000",
		Actor: "a",
	})
	if err == nil {
		t.Fatal("expected frozen error")
	}
	var e *Error
	if errors.As(err, &e) && e.Code != ErrCodeEffectivityFrozen {
		t.Errorf("expected code %s, got %s", ErrCodeEffectivityFrozen, e.Code)
	}
	if repo.ecos["eco-1"].Effectivity != nil {
		t.Error("frozen ECO must not be written")
	}
}

func TestSetEffectivityImmediateRequiresApproval(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusDraft})
	svc := newTestService(t, repo, nil)

	err := svc.SetEffectivity(context.Background(), "eco-1", SetEffectivityInput{
		Kind:  EffectivityImmediate,
		Actor: "a",
	})
	if err == nil {
		t.Fatal("expected premature IMMEDIATE rejection")
	}
	var e *Error
	if errors.As(err, &e) && e.Code != ErrCodePrematureImmediate {
		t.Errorf("expected code %s, got %s", ErrCodePrematureImmediate, e.Code)
	}

	repo.ecos["eco-1"].Status = StatusCRBApproved
	if err := svc.SetEffectivity(context.Background(), "eco-1", SetEffectivityInput{
		Kind:  EffectivityImmediate,
		Actor: "a",
	}); err != nil {
		t.Errorf("IMMEDIATE on an approved ECO must pass: %v", err)
	}
}

func TestSetEffectivityDenied(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusDraft})
	svc := newTestService(t, repo, &denyAuth{denied: "intruder"})

	err := svc.SetEffectivity(context.Background(), "eco-1", SetEffectivityInput{
		Kind:  EffectivityBySerialNumber,
		Value: "1000",
		Actor: "intruder",
	})
	if err == nil {
		t.Fatal("expected permission error")
	}
	if !IsPermission(err) {
		t.Errorf("expected permission error, got %v", err)
	}
	if repo.ecos["eco-1"].Effectivity != nil {
		t.Error("denied actor must not write")
	}

	// Another actor is still allowed.
	if err := svc.SetEffectivity(context.Background(), "eco-1", SetEffectivityInput{
		Kind:  EffectivityBySerialNumber,
		Value: "1000",
		Actor: "engineer@machshop",
	}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTransition(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Number: "ECO-2024-001", Status: StatusDraft})
	svc := newTestService(t, repo, nil)

	if err := svc.Transition(context.Background(), "eco-1", StatusSubmitted, "reviewer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.ecos["eco-1"].Status != StatusSubmitted {
		t.Errorf("status not written, got %s", repo.ecos["eco-1"].Status)
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(repo.history))
	}
	entry := repo.history[0]
	if entry.FromStatus != StatusDraft || entry.ToStatus != StatusSubmitted {
		t.Errorf("history entry must record the edge: %+v", entry)
	}
}

func TestTransitionIllegalEdge(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusDraft})
	svc := newTestService(t, repo, nil)

	err := svc.Transition(context.Background(), "eco-1", StatusCompleted, "reviewer")
	if err == nil {
		t.Fatal("expected illegal transition error")
	}
	if !IsState(err) {
		t.Errorf("expected state error, got %v", err)
	}
	if repo.ecos["eco-1"].Status != StatusDraft {
		t.Error("illegal transition must not write")
	}
	if len(repo.history) != 0 {
		t.Error("illegal transition must not append history")
	}
}

func TestTransitionToCompletedStampsActualDate(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusVerification})
	svc := newTestService(t, repo, nil)

	before := time.Now()
	if err := svc.Transition(context.Background(), "eco-1", StatusCompleted, "reviewer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actual := repo.ecos["eco-1"].ActualEffectiveDate
	if actual == nil {
		t.Fatal("completing must stamp the actual effective date")
	}
	if actual.Before(before) || actual.After(time.Now()) {
		t.Errorf("actual effective date out of range: %v", actual)
	}
}

func TestTransitionKeepsExistingActualDate(t *testing.T) {
	recorded := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusVerification, ActualEffectiveDate: &recorded})
	svc := newTestService(t, repo, nil)

	if err := svc.Transition(context.Background(), "eco-1", StatusCompleted, "reviewer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.ecos["eco-1"].ActualEffectiveDate.Equal(recorded) {
		t.Error("an already-recorded actual effective date must be kept")
	}
}

func TestTransitionMissingECO(t *testing.T) {
	svc := newTestService(t, newMemRepo(), nil)

	err := svc.Transition(context.Background(), "missing", StatusSubmitted, "reviewer")
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestCheckEffectivity(t *testing.T) {
	eff, _ := ParseEffectivity(EffectivityByDate, "2024-01-15")
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusCRBApproved, Effectivity: eff})
	svc := newTestService(t, repo, nil)

	effective, err := svc.CheckEffectivity(context.Background(), "eco-1",
		&EffectivityContext{Date: datePtr(2024, 1, 20)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !effective {
		t.Error("expected effective after cutover")
	}

	effective, err = svc.CheckEffectivity(context.Background(), "eco-1",
		&EffectivityContext{Date: datePtr(2024, 1, 10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if effective {
		t.Error("expected not effective before cutover")
	}

	if _, err := svc.CheckEffectivity(context.Background(), "missing", nil); !IsNotFound(err) {
		t.Errorf("a missing ECO must surface, got %v", err)
	}
}

func TestGetEffectiveVersion(t *testing.T) {
	eff, _ := ParseEffectivity(EffectivityByDate, "2024-01-15")
	repo := newMemRepo(&ECO{
		ID:          "eco-1",
		Status:      StatusCRBApproved,
		Effectivity: eff,
		AffectedDocuments: []AffectedDocument{
			{DocumentType: "drawing", DocumentID: "DWG-44", TargetVersion: "2.0.0"},
		},
	})
	svc := newTestService(t, repo, nil)

	v, err := svc.GetEffectiveVersion(context.Background(), "drawing", "DWG-44",
		&EffectivityContext{Date: datePtr(2024, 1, 20)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "2.0.0" {
		t.Errorf("expected 2.0.0, got %q", v)
	}

	v, err = svc.GetEffectiveVersion(context.Background(), "drawing", "DWG-404", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != BaselineVersion {
		t.Errorf("expected baseline for unknown document, got %q", v)
	}
}

func TestGetTransitionPlan(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusCRBApproved, Priority: PriorityEmergency, IsInterchangeable: true})
	svc := newTestService(t, repo, nil)

	plan, err := svc.GetTransitionPlan(context.Background(), "eco-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.TransitionPeriodDays != 7 {
		t.Errorf("expected 7 days, got %d", plan.TransitionPeriodDays)
	}

	if _, err := svc.GetTransitionPlan(context.Background(), "missing"); !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestServiceValidateEffectivity(t *testing.T) {
	repo := newMemRepo(&ECO{ID: "eco-1", Status: StatusDraft})
	svc := newTestService(t, repo, nil)

	result, err := svc.ValidateEffectivity(context.Background(), "eco-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Error("an ECO without effectivity must be invalid")
	}
}
