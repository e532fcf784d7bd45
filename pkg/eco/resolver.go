package eco

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// VersionSource identifies where a resolved version came from, for
// diagnostics and metrics.
type VersionSource string

const (
	// VersionSourceECO means an active change order supplied the version.
	VersionSourceECO VersionSource = "eco"

	// VersionSourceDocument means the entity's own stored version was used.
	VersionSourceDocument VersionSource = "document"

	// VersionSourceBaseline means the entity was unknown everywhere and the
	// default baseline was returned.
	VersionSourceBaseline VersionSource = "baseline"
)

// Resolution is the full answer of a version lookup.
type Resolution struct {
	// Version is the version string the production context must use.
	Version string

	// Source says which fallback tier supplied the version.
	Source VersionSource

	// Winner is the change order that supplied the version, when Source is
	// VersionSourceECO.
	Winner *ECO

	// CurrentVersion is the entity's stored version, or the baseline when
	// the entity is unknown.
	CurrentVersion string
}

// Resolver finds the document version in force for a production context.
//
// Precedence is the core correctness property: candidates are ordered by
// effective date descending (actual falling back to planned), and the first
// candidate the rule evaluator accepts wins. A production transaction
// therefore sees exactly one version even when several overlapping changes
// target the same document, and a later-effective change supersedes an
// earlier one.
type Resolver struct {
	repo   Repository
	docs   DocumentStore
	logger zerolog.Logger
}

// NewResolver creates a resolver over the given collaborators.
func NewResolver(repo Repository, docs DocumentStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		docs:   docs,
		logger: logger.With().Str("component", "version-resolver").Logger(),
	}
}

// EffectiveVersion returns the version string the given production context
// must use for the entity. Unknown entities resolve to BaselineVersion.
func (r *Resolver) EffectiveVersion(ctx context.Context, entityType, entityID string, ectx *EffectivityContext) (string, error) {
	res, err := r.Resolve(ctx, entityType, entityID, ectx)
	if err != nil {
		return "", err
	}
	return res.Version, nil
}

// Resolve runs the full resolution algorithm and reports which tier won.
func (r *Resolver) Resolve(ctx context.Context, entityType, entityID string, ectx *EffectivityContext) (*Resolution, error) {
	candidates, err := r.repo.ListCandidates(ctx, entityType, entityID, ActiveProductionStatuses())
	if err != nil {
		return nil, err
	}

	sortByEffectiveDateDesc(candidates)

	ectx = contextFor(ectx, entityType, entityID)

	var winner *ECO
	for _, cand := range candidates {
		if IsEffective(cand, ectx) {
			winner = cand
			break
		}
	}

	current, err := r.currentVersion(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	res := &Resolution{CurrentVersion: current}
	switch {
	case winner != nil:
		version, ok := winner.TargetVersionFor(entityType, entityID)
		if !ok || version == "" {
			// Candidate matched but carries no target version for this
			// entity; it cannot supply a version, fall through to the
			// stored one.
			res.Version = current
			res.Source = VersionSourceDocument
		} else {
			res.Version = version
			res.Source = VersionSourceECO
			res.Winner = winner
		}
	default:
		res.Version = current
		res.Source = VersionSourceDocument
	}

	if res.CurrentVersion == "" {
		res.CurrentVersion = BaselineVersion
	}
	if res.Version == "" {
		res.Version = BaselineVersion
		res.Source = VersionSourceBaseline
	}

	r.logger.Debug().
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("version", res.Version).
		Str("source", string(res.Source)).
		Int("candidates", len(candidates)).
		Msg("Resolved effective version")

	return res, nil
}

// VersionInfo answers a batch version query: per entity the stored version,
// the version in force, whether a transition is underway, and the winning
// change's effective date and interchangeability.
func (r *Resolver) VersionInfo(ctx context.Context, entityType string, entityIDs []string, ectx *EffectivityContext) ([]VersionInfo, error) {
	infos := make([]VersionInfo, 0, len(entityIDs))
	for _, id := range entityIDs {
		res, err := r.Resolve(ctx, entityType, id, ectx)
		if err != nil {
			return nil, err
		}

		info := VersionInfo{
			EntityID:         id,
			CurrentVersion:   res.CurrentVersion,
			EffectiveVersion: res.Version,
			Interchangeable:  true,
		}
		if res.Winner != nil {
			info.IsTransitioning = res.Version != res.CurrentVersion
			info.EffectiveDate = res.Winner.EffectiveDate()
			info.Interchangeable = res.Winner.IsInterchangeable
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// currentVersion fetches the entity's stored version. A missing entity is an
// explicit rule of the resolution algorithm, not an error: it resolves to the
// empty string here and the baseline above.
func (r *Resolver) currentVersion(ctx context.Context, entityType, entityID string) (string, error) {
	version, err := r.docs.CurrentVersion(ctx, entityType, entityID)
	switch {
	case err == nil:
		return version, nil
	case IsNotFound(err):
		return "", nil
	default:
		return "", err
	}
}

// contextFor guarantees the evaluator sees the entity reference under query.
func contextFor(ectx *EffectivityContext, entityType, entityID string) *EffectivityContext {
	if ectx == nil {
		return &EffectivityContext{EntityType: entityType, EntityID: entityID}
	}
	c := *ectx
	c.EntityType = entityType
	c.EntityID = entityID
	return &c
}

// sortByEffectiveDateDesc orders candidates most-recently-effective first.
// The effective date is the actual date falling back to the planned one;
// candidates with no date at all sort last. The sort is stable so candidate
// order from the store breaks ties deterministically.
func sortByEffectiveDateDesc(ecos []*ECO) {
	sort.SliceStable(ecos, func(i, j int) bool {
		di, dj := ecos[i].EffectiveDate(), ecos[j].EffectiveDate()
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.After(*dj)
		}
	})
}
