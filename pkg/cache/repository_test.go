package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/machshop/machshop/pkg/eco"
)

// countingRepo records how many times each read path hits the backing store.
type countingRepo struct {
	gets  int
	lists int
	ecos  map[string]*eco.ECO
}

func (r *countingRepo) GetECO(_ context.Context, id string) (*eco.ECO, error) {
	r.gets++
	e, ok := r.ecos[id]
	if !ok {
		return nil, eco.NewNotFoundError("ECO not found", id).WithCode(eco.ErrCodeECONotFound)
	}
	return e, nil
}

func (r *countingRepo) ListCandidates(_ context.Context, _, _ string, _ []eco.Status) ([]*eco.ECO, error) {
	r.lists++
	out := make([]*eco.ECO, 0, len(r.ecos))
	for _, e := range r.ecos {
		out = append(out, e)
	}
	return out, nil
}

func (r *countingRepo) UpdateEffectivity(_ context.Context, id string, _ eco.Status, update eco.EffectivityUpdate, _ *eco.HistoryEntry) error {
	r.ecos[id].Effectivity = update.Effectivity
	return nil
}

func (r *countingRepo) UpdateStatus(_ context.Context, id string, _, to eco.Status, _ *time.Time, _ *eco.HistoryEntry) error {
	r.ecos[id].Status = to
	return nil
}

func (r *countingRepo) AppendHistory(_ context.Context, _ *eco.HistoryEntry) error {
	return nil
}

func newTestCache(t *testing.T) (*Repository, *countingRepo) {
	t.Helper()

	inner := &countingRepo{ecos: map[string]*eco.ECO{
		"eco-1": {ID: "eco-1", Status: eco.StatusDraft, Priority: eco.PriorityMedium},
	}}
	repo, err := NewRepository(inner, 8, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return repo, inner
}

func TestGetECOCaches(t *testing.T) {
	repo, inner := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.GetECO(ctx, "eco-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if inner.gets != 1 {
		t.Errorf("expected 1 store read, got %d", inner.gets)
	}
}

func TestGetECOMissNotCached(t *testing.T) {
	repo, inner := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := repo.GetECO(ctx, "missing"); !eco.IsNotFound(err) {
			t.Fatalf("expected not-found error, got %v", err)
		}
	}

	if inner.gets != 2 {
		t.Errorf("expected misses to reach the store each time, got %d reads", inner.gets)
	}
}

func TestListCandidatesCaches(t *testing.T) {
	repo, inner := newTestCache(t)
	ctx := context.Background()
	statuses := eco.ActiveProductionStatuses()

	for i := 0; i < 3; i++ {
		if _, err := repo.ListCandidates(ctx, "drawing", "DWG-44", statuses); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if inner.lists != 1 {
		t.Errorf("expected 1 store list, got %d", inner.lists)
	}

	// Different entity is a different key.
	if _, err := repo.ListCandidates(ctx, "drawing", "DWG-99", statuses); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lists != 2 {
		t.Errorf("expected 2 store lists, got %d", inner.lists)
	}
}

func TestWritesInvalidate(t *testing.T) {
	repo, inner := newTestCache(t)
	ctx := context.Background()
	statuses := eco.ActiveProductionStatuses()

	if _, err := repo.GetECO(ctx, "eco-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.ListCandidates(ctx, "drawing", "DWG-44", statuses); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.UpdateStatus(ctx, "eco-1", eco.StatusDraft, eco.StatusSubmitted, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetECO(ctx, "eco-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != eco.StatusSubmitted {
		t.Errorf("expected fresh read after invalidation, got status %s", got.Status)
	}
	if inner.gets != 2 {
		t.Errorf("expected 2 store reads, got %d", inner.gets)
	}

	if _, err := repo.ListCandidates(ctx, "drawing", "DWG-44", statuses); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lists != 2 {
		t.Errorf("expected candidate cache to be purged on write, got %d lists", inner.lists)
	}
}
