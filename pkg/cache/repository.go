// Package cache wraps the ECO repository with an in-memory LRU for the
// read paths the version resolver hits on every lookup. Mutations through
// the wrapper invalidate the affected entries so resolution never serves a
// stale status or effectivity.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/machshop/machshop/pkg/eco"
)

// DefaultSize is the entry budget when the caller passes zero.
const DefaultSize = 1024

// Repository decorates an eco.Repository with LRU caching of GetECO and
// ListCandidates results. Writes go straight through and invalidate.
type Repository struct {
	inner      eco.Repository
	ecos       *lru.Cache[string, *eco.ECO]
	candidates *lru.Cache[string, []*eco.ECO]
	logger     zerolog.Logger
}

// NewRepository wraps inner with caches of the given size.
func NewRepository(inner eco.Repository, size int, logger zerolog.Logger) (*Repository, error) {
	if size <= 0 {
		size = DefaultSize
	}

	ecos, err := lru.New[string, *eco.ECO](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create ECO cache: %w", err)
	}
	candidates, err := lru.New[string, []*eco.ECO](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate cache: %w", err)
	}

	return &Repository{
		inner:      inner,
		ecos:       ecos,
		candidates: candidates,
		logger:     logger.With().Str("component", "cache").Logger(),
	}, nil
}

// GetECO returns the cached change order or falls through to the store.
func (r *Repository) GetECO(ctx context.Context, id string) (*eco.ECO, error) {
	if e, ok := r.ecos.Get(id); ok {
		return e, nil
	}

	e, err := r.inner.GetECO(ctx, id)
	if err != nil {
		return nil, err
	}

	r.ecos.Add(id, e)
	return e, nil
}

// ListCandidates returns the cached candidate list or falls through.
func (r *Repository) ListCandidates(ctx context.Context, entityType, entityID string, statuses []eco.Status) ([]*eco.ECO, error) {
	key := candidateKey(entityType, entityID, statuses)
	if list, ok := r.candidates.Get(key); ok {
		return list, nil
	}

	list, err := r.inner.ListCandidates(ctx, entityType, entityID, statuses)
	if err != nil {
		return nil, err
	}

	r.candidates.Add(key, list)
	return list, nil
}

// UpdateEffectivity writes through and invalidates.
func (r *Repository) UpdateEffectivity(ctx context.Context, id string, expected eco.Status, update eco.EffectivityUpdate, entry *eco.HistoryEntry) error {
	if err := r.inner.UpdateEffectivity(ctx, id, expected, update, entry); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

// UpdateStatus writes through and invalidates.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to eco.Status, actualEffective *time.Time, entry *eco.HistoryEntry) error {
	if err := r.inner.UpdateStatus(ctx, id, from, to, actualEffective, entry); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

// AppendHistory passes through without touching the caches. History is not
// part of any cached read.
func (r *Repository) AppendHistory(ctx context.Context, entry *eco.HistoryEntry) error {
	return r.inner.AppendHistory(ctx, entry)
}

// invalidate drops the ECO entry and the whole candidate cache. Candidate
// lists are keyed by entity, not by ECO, so a changed ECO can sit in any of
// them; purging the lot is the only safe move.
func (r *Repository) invalidate(id string) {
	r.ecos.Remove(id)
	r.candidates.Purge()
	r.logger.Debug().Str("eco_id", id).Msg("cache invalidated")
}

// Len reports the number of cached ECO entries, for diagnostics.
func (r *Repository) Len() int {
	return r.ecos.Len()
}

func candidateKey(entityType, entityID string, statuses []eco.Status) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, string(s))
	}
	sort.Strings(parts)
	return entityType + "\x00" + entityID + "\x00" + strings.Join(parts, ",")
}
