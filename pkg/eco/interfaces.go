package eco

import (
	"context"
	"time"
)

// Repository is the persistence surface the engine consumes for change
// orders. Implementations must translate store failures into the classified
// error family: a missing ECO is ErrorKindNotFound, a lost optimistic guard
// is ErrorKindState with code ErrCodeConcurrentUpdate, anything unexpected
// is ErrorKindInternal.
type Repository interface {
	// GetECO fetches a change order with its parts, documents, and tasks.
	GetECO(ctx context.Context, id string) (*ECO, error)

	// ListCandidates fetches change orders in one of the given statuses whose
	// affected documents reference (entityType, entityID).
	ListCandidates(ctx context.Context, entityType, entityID string, statuses []Status) ([]*ECO, error)

	// UpdateEffectivity applies the effectivity fields as a single conditional
	// update guarded by the status the caller read. Two concurrent callers
	// must not both succeed. The history entry is written atomically with the
	// update, so a successful update is always audited.
	UpdateEffectivity(ctx context.Context, id string, expected Status, update EffectivityUpdate, entry *HistoryEntry) error

	// UpdateStatus moves the ECO along a status edge as a single conditional
	// update guarded by the from status. The history entry is written
	// atomically with the update.
	UpdateStatus(ctx context.Context, id string, from, to Status, actualEffective *time.Time, entry *HistoryEntry) error

	// AppendHistory appends an immutable history entry. Entries are never
	// updated or deleted.
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
}

// EffectivityUpdate carries the fields written by the validator-gated setter.
// Nil pointer fields are left untouched.
type EffectivityUpdate struct {
	Effectivity          *Effectivity
	PlannedEffectiveDate *time.Time
	IsInterchangeable    *bool
}

// DocumentStore resolves the currently stored version of a document.
// Unknown documents yield ErrorKindNotFound; the resolver maps that to the
// baseline version by explicit rule.
type DocumentStore interface {
	CurrentVersion(ctx context.Context, documentType, documentID string) (string, error)
}

// InventoryGateway supplies per-part quantities in the work-in-process,
// finished-goods, and raw-material buckets. Used only as transition planner
// input; the engine never computes inventory figures itself.
type InventoryGateway interface {
	PartInventory(ctx context.Context, partNumber string) (*PartInventory, error)
}

// Authorizer decides whether an actor may perform a mutating action on an
// ECO. The engine only carries the signal: a denial surfaces as
// ErrorKindPermission and enforcement policy belongs to the caller.
// A nil Authorizer allows everything.
type Authorizer interface {
	Authorize(ctx context.Context, actor, action, ecoID string) error
}
