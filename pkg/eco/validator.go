package eco

import (
	"fmt"
	"time"
)

// ValidateEffectivity runs the structural and semantic checks an ECO's
// effectivity configuration must pass before it can be trusted downstream.
//
// Hard errors block any use: missing effectivity, or a payload that fails
// the grammar for its kind. Soft warnings surface readiness gaps without
// blocking: affected documents with no target version, and open
// implementation tasks.
func ValidateEffectivity(e *ECO) ValidationResult {
	result := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	switch {
	case e.Effectivity == nil:
		result.Errors = append(result.Errors, "effectivity type is not set")
	case e.Effectivity.kind.Validate() != nil:
		result.Errors = append(result.Errors,
			fmt.Sprintf("unknown effectivity type %q", e.Effectivity.kind))
	default:
		if msg := checkGrammar(e.Effectivity); msg != "" {
			result.Errors = append(result.Errors, msg)
		}
	}

	for _, doc := range e.AffectedDocuments {
		if doc.TargetVersion == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("affected document %s/%s has no target version",
					doc.DocumentType, doc.DocumentID))
		}
	}

	if open := e.OpenTasks(); len(open) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d implementation task(s) not yet completed", len(open)))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// checkGrammar re-validates a typed effectivity's payload against the wire
// grammar for its kind. Values built through ParseEffectivity always pass;
// this catches zero-valued payloads loaded from a corrupted record.
func checkGrammar(e *Effectivity) string {
	switch e.kind {
	case EffectivityByDate:
		if e.date.IsZero() {
			return "effectivity date is not set"
		}
	case EffectivityBySerialNumber, EffectivityByWorkOrder:
		if e.cutover < 0 {
			return fmt.Sprintf("effectivity cutover must be numeric, got %q", e.Value())
		}
	case EffectivityByLotBatch:
		if e.lot == "" {
			return "lot/batch effectivity value must be non-empty"
		}
	}
	return ""
}

// ValidateEffectivityConfig checks the wire form (kind tag plus string value)
// without constructing an ECO: date must be YYYY-MM-DD, serial and work-order
// cutovers must be all-numeric, lot/batch must be non-empty, IMMEDIATE takes
// no value. Returns a classified validation error on failure.
func ValidateEffectivityConfig(kind EffectivityKind, value string) error {
	if kind == "" {
		return NewValidationError("effectivity type is required").
			WithCode(ErrCodeMissingEffectivity)
	}
	if kind != EffectivityImmediate && value == "" {
		return NewValidationError("effectivity value is required").
			WithCode(ErrCodeMissingEffectivity)
	}
	_, err := ParseEffectivity(kind, value)
	return err
}

// checkSetterRules enforces the setter-only hard errors that go beyond the
// structural validator: effectivity is frozen on terminal ECOs, a planned
// effective date must not be in the past, and IMMEDIATE may only be declared
// once the ECO is approved or completed.
func checkSetterRules(e *ECO, input SetEffectivityInput, now time.Time) error {
	if e.Status.IsTerminal() {
		return NewStateError("effectivity is frozen on a terminal ECO", e.Status).
			WithCode(ErrCodeEffectivityFrozen).
			WithResource(e.ID)
	}

	if input.PlannedEffectiveDate != nil {
		if truncateToDay(*input.PlannedEffectiveDate).Before(truncateToDay(now)) {
			return NewValidationError("planned effective date is in the past").
				WithCode(ErrCodePastEffectiveDate).
				WithResource(e.ID).
				WithDetail("planned_effective_date", input.PlannedEffectiveDate.Format(dateLayout))
		}
	}

	if input.Kind == EffectivityImmediate && !e.Status.IsApproved() {
		return NewValidationError(
			"IMMEDIATE effectivity requires an approved or completed ECO").
			WithCode(ErrCodePrematureImmediate).
			WithResource(e.ID).
			WithDetail("current_status", string(e.Status))
	}

	return nil
}
