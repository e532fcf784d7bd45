package eco

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EffectivityKind discriminates the condition under which a change becomes
// binding in production.
type EffectivityKind string

const (
	// EffectivityByDate makes the change binding on and after a calendar date.
	EffectivityByDate EffectivityKind = "BY_DATE"

	// EffectivityBySerialNumber makes the change binding from a unit serial number.
	EffectivityBySerialNumber EffectivityKind = "BY_SERIAL_NUMBER"

	// EffectivityByWorkOrder makes the change binding from a work order number.
	EffectivityByWorkOrder EffectivityKind = "BY_WORK_ORDER"

	// EffectivityByLotBatch makes the change binding from a lot/batch code.
	EffectivityByLotBatch EffectivityKind = "BY_LOT_BATCH"

	// EffectivityImmediate states the change is already in effect. It is a
	// statement of fact about a completed ECO, not a future promise.
	EffectivityImmediate EffectivityKind = "IMMEDIATE"
)

// Validate checks if the effectivity kind is known.
func (k EffectivityKind) Validate() error {
	switch k {
	case EffectivityByDate, EffectivityBySerialNumber, EffectivityByWorkOrder,
		EffectivityByLotBatch, EffectivityImmediate:
		return nil
	default:
		return fmt.Errorf("invalid effectivity kind: %s", k)
	}
}

// dateLayout is the wire grammar for BY_DATE effectivity values.
const dateLayout = "2006-01-02"

// Effectivity is a tagged variant with one payload shape per kind: a typed
// date for BY_DATE, a typed integer cutover for BY_SERIAL_NUMBER and
// BY_WORK_ORDER, a string code for BY_LOT_BATCH, and an empty payload for
// IMMEDIATE. Values are constructed through ParseEffectivity or the typed
// constructors, so an illegal configuration is unrepresentable.
type Effectivity struct {
	kind    EffectivityKind
	date    time.Time
	cutover int64
	lot     string
}

// DateEffectivity builds a BY_DATE effectivity. The cutover is truncated to
// day granularity.
func DateEffectivity(cutover time.Time) *Effectivity {
	return &Effectivity{kind: EffectivityByDate, date: truncateToDay(cutover)}
}

// SerialEffectivity builds a BY_SERIAL_NUMBER effectivity.
func SerialEffectivity(cutover int64) *Effectivity {
	return &Effectivity{kind: EffectivityBySerialNumber, cutover: cutover}
}

// WorkOrderEffectivity builds a BY_WORK_ORDER effectivity.
func WorkOrderEffectivity(cutover int64) *Effectivity {
	return &Effectivity{kind: EffectivityByWorkOrder, cutover: cutover}
}

// LotBatchEffectivity builds a BY_LOT_BATCH effectivity.
func LotBatchEffectivity(cutover string) *Effectivity {
	return &Effectivity{kind: EffectivityByLotBatch, lot: cutover}
}

// ImmediateEffectivity builds an IMMEDIATE effectivity.
func ImmediateEffectivity() *Effectivity {
	return &Effectivity{kind: EffectivityImmediate}
}

// ParseEffectivity converts the wire form (kind tag plus string value) into a
// typed effectivity. The grammar depends on the kind: BY_DATE requires
// YYYY-MM-DD, BY_SERIAL_NUMBER and BY_WORK_ORDER require an all-numeric
// value, BY_LOT_BATCH requires a non-empty code, IMMEDIATE takes no value.
func ParseEffectivity(kind EffectivityKind, value string) (*Effectivity, error) {
	switch kind {
	case EffectivityByDate:
		d, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, NewValidationError(
				fmt.Sprintf("effectivity date must be YYYY-MM-DD, got %q", value)).
				WithCode(ErrCodeBadEffectivityValue)
		}
		return DateEffectivity(d), nil

	case EffectivityBySerialNumber, EffectivityByWorkOrder:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return nil, NewValidationError(
				fmt.Sprintf("effectivity cutover must be numeric, got %q", value)).
				WithCode(ErrCodeBadEffectivityValue)
		}
		if kind == EffectivityBySerialNumber {
			return SerialEffectivity(n), nil
		}
		return WorkOrderEffectivity(n), nil

	case EffectivityByLotBatch:
		if value == "" {
			return nil, NewValidationError("lot/batch effectivity value must be non-empty").
				WithCode(ErrCodeBadEffectivityValue)
		}
		return LotBatchEffectivity(value), nil

	case EffectivityImmediate:
		return ImmediateEffectivity(), nil

	default:
		return nil, NewValidationError(fmt.Sprintf("unknown effectivity kind %q", kind)).
			WithCode(ErrCodeBadEffectivityValue)
	}
}

// Kind returns the effectivity discriminator.
func (e *Effectivity) Kind() EffectivityKind {
	return e.kind
}

// Value returns the canonical wire form of the payload. IMMEDIATE has none.
func (e *Effectivity) Value() string {
	switch e.kind {
	case EffectivityByDate:
		return e.date.Format(dateLayout)
	case EffectivityBySerialNumber, EffectivityByWorkOrder:
		return strconv.FormatInt(e.cutover, 10)
	case EffectivityByLotBatch:
		return e.lot
	default:
		return ""
	}
}

// CutoverDate returns the day-granular cutover for BY_DATE effectivities.
func (e *Effectivity) CutoverDate() (time.Time, bool) {
	if e.kind != EffectivityByDate {
		return time.Time{}, false
	}
	return e.date, true
}

// effectivityJSON is the persisted/wire shape of an Effectivity.
type effectivityJSON struct {
	Kind  EffectivityKind `json:"kind"`
	Value string          `json:"value,omitempty"`
}

// MarshalJSON serializes the tagged variant as {kind, value}.
func (e *Effectivity) MarshalJSON() ([]byte, error) {
	return json.Marshal(effectivityJSON{Kind: e.kind, Value: e.Value()})
}

// UnmarshalJSON deserializes and re-validates the wire form.
func (e *Effectivity) UnmarshalJSON(data []byte) error {
	var w effectivityJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := ParseEffectivity(w.Kind, w.Value)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// EffectivityContext is the production situation being evaluated against an
// ECO. Only the fields relevant to the ECO's effectivity kind are consulted;
// the others are ignored.
type EffectivityContext struct {
	// EntityType is the kind of document/part being checked,
	// e.g. "work_instruction", "process_spec".
	EntityType string `json:"entity_type"`

	// EntityID identifies the document/part being checked.
	EntityID string `json:"entity_id"`

	// Date is the production date under evaluation. Defaults to now for
	// BY_DATE checks when unset.
	Date *time.Time `json:"date,omitempty"`

	// SerialNumber is the unit serial number, consulted for BY_SERIAL_NUMBER.
	SerialNumber string `json:"serial_number,omitempty"`

	// WorkOrderNumber is the work order, consulted for BY_WORK_ORDER.
	WorkOrderNumber string `json:"work_order_number,omitempty"`

	// LotBatch is the lot/batch code, consulted for BY_LOT_BATCH.
	LotBatch string `json:"lot_batch,omitempty"`
}

// IsEffective decides whether the ECO's change applies to the given
// production context. It is a pure function of its two inputs, safe to call
// concurrently and repeatedly.
//
// The default is fail-closed: an ECO without a fully specified effectivity is
// never effective. Under-application is recoverable (a human notices the
// missing change); over-application may already have built non-conforming
// product. A nil context is treated as an empty one, so kinds that consult
// nothing (IMMEDIATE) or carry a default (BY_DATE uses the current date)
// still resolve.
func IsEffective(eco *ECO, ctx *EffectivityContext) bool {
	if eco == nil || eco.Effectivity == nil {
		return false
	}
	if ctx == nil {
		ctx = &EffectivityContext{}
	}

	e := eco.Effectivity
	switch e.kind {
	case EffectivityByDate:
		at := time.Now()
		if ctx.Date != nil {
			at = *ctx.Date
		}
		return onOrAfterDay(at, e.date)

	case EffectivityBySerialNumber:
		return numericAtOrAfter(ctx.SerialNumber, e.cutover)

	case EffectivityByWorkOrder:
		return numericAtOrAfter(ctx.WorkOrderNumber, e.cutover)

	case EffectivityByLotBatch:
		// Ordinal comparison. Correct only for fixed-width or
		// lexicographically monotonic lot codes; the ordering policy for
		// unpadded codes is an open business decision.
		return ctx.LotBatch != "" && ctx.LotBatch >= e.lot

	case EffectivityImmediate:
		// The comparison is against the ECO itself, not the context: the
		// change is in effect exactly when the ECO has completed.
		return eco.Status == StatusCompleted

	default:
		return false
	}
}

// numericAtOrAfter parses the context value as a number and compares it
// against the cutover. Missing or non-numeric context values fail closed.
func numericAtOrAfter(value string, cutover int64) bool {
	if value == "" {
		return false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false
	}
	return n >= cutover
}

// truncateToDay drops the time-of-day component in the value's location.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// onOrAfterDay compares calendar dates by their components, so a context in
// any time zone reaches the cutover on the same wall-clock day.
func onOrAfterDay(t, cutover time.Time) bool {
	ty, tm, td := t.Date()
	cy, cm, cd := cutover.Date()
	if ty != cy {
		return ty > cy
	}
	if tm != cm {
		return tm > cm
	}
	return td >= cd
}
