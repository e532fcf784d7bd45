package eco

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func dateECO(status Status, cutover string) *ECO {
	eff, err := ParseEffectivity(EffectivityByDate, cutover)
	if err != nil {
		panic(err)
	}
	return &ECO{ID: "eco-1", Status: status, Effectivity: eff}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParseEffectivity(t *testing.T) {
	tests := []struct {
		name    string
		kind    EffectivityKind
		value   string
		wantErr bool
	}{
		{"valid date", EffectivityByDate, "2024-01-15", false},
		{"date with time", EffectivityByDate, "2024-01-15T10:00:00Z", true},
		{"date wrong order", EffectivityByDate, "15-01-2024", true},
		{"date garbage", EffectivityByDate, "someday", true},
		{"date empty", EffectivityByDate, "", true},
		{"valid serial", EffectivityBySerialNumber, "1000", false},
		{"serial zero", EffectivityBySerialNumber, "0", false},
		{"serial alpha", EffectivityBySerialNumber, "SN-1000", true},
		{"serial negative", EffectivityBySerialNumber, "-5", true},
		{"serial empty", EffectivityBySerialNumber, "", true},
		{"valid work order", EffectivityByWorkOrder, "500", false},
		{"work order alpha", EffectivityByWorkOrder, "WO-500", true},
		{"valid lot", EffectivityByLotBatch, "LOT-2024-03", false},
		{"lot empty", EffectivityByLotBatch, "", true},
		{"immediate no value", EffectivityImmediate, "", false},
		{"unknown kind", EffectivityKind("BY_SHIFT"), "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff, err := ParseEffectivity(tt.kind, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s %q", tt.kind, tt.value)
				}
				if !IsValidation(err) {
					t.Errorf("expected validation error, got %v", err)
				}
				var e *Error
				if errors.As(err, &e) && e.Code != ErrCodeBadEffectivityValue {
					t.Errorf("expected code %s, got %s", ErrCodeBadEffectivityValue, e.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eff.Kind() != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, eff.Kind())
			}
		})
	}
}

func TestEffectivityValueRoundTrip(t *testing.T) {
	tests := []struct {
		kind  EffectivityKind
		value string
	}{
		{EffectivityByDate, "2024-01-15"},
		{EffectivityBySerialNumber, "1000"},
		{EffectivityByWorkOrder, "500"},
		{EffectivityByLotBatch, "LOT-2024-03"},
		{EffectivityImmediate, ""},
	}

	for _, tt := range tests {
		eff, err := ParseEffectivity(tt.kind, tt.value)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := eff.Value(); got != tt.value {
			t.Errorf("Value() for %s = %q, want %q", tt.kind, got, tt.value)
		}
	}
}

func TestEffectivityJSON(t *testing.T) {
	eff := SerialEffectivity(1000)
	data, err := json.Marshal(eff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"kind":"BY_SERIAL_NUMBER","value":"1000"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var parsed Effectivity
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Kind() != EffectivityBySerialNumber || parsed.Value() != "1000" {
		t.Errorf("round-trip mismatch: %s %s", parsed.Kind(), parsed.Value())
	}

	if err := json.Unmarshal([]byte(`{"kind":"BY_DATE","value":"not-a-date"}`), &parsed); err == nil {
		t.Error("expected error for invalid wire payload")
	}
}

func TestIsEffectiveFailClosed(t *testing.T) {
	ctx := &EffectivityContext{EntityType: "drawing", EntityID: "DWG-44"}

	if IsEffective(nil, ctx) {
		t.Error("nil ECO must not be effective")
	}
	if IsEffective(&ECO{ID: "eco-1", Status: StatusCRBApproved}, ctx) {
		t.Error("ECO without effectivity must not be effective")
	}
	serial := &ECO{ID: "eco-1", Status: StatusCRBApproved, Effectivity: SerialEffectivity(1000)}
	if IsEffective(serial, nil) {
		t.Error("serial cutover with no serial in context must not be effective")
	}
}

func TestIsEffectiveNilContext(t *testing.T) {
	// A nil context behaves like an empty one. Kinds that consult nothing
	// or default a missing value still resolve.
	done := &ECO{ID: "eco-1", Status: StatusCompleted, Effectivity: ImmediateEffectivity()}
	if !IsEffective(done, nil) {
		t.Error("completed IMMEDIATE ECO must be effective with a nil context")
	}

	past := dateECO(StatusCRBApproved, "2000-01-01")
	if !IsEffective(past, nil) {
		t.Error("long-past date cutover must default to the current date")
	}

	future := dateECO(StatusCRBApproved, "2999-01-01")
	if IsEffective(future, nil) {
		t.Error("far-future date cutover must not be effective yet")
	}
}

func TestIsEffectiveByDate(t *testing.T) {
	e := dateECO(StatusCRBApproved, "2024-01-15")

	tests := []struct {
		name string
		date *time.Time
		want bool
	}{
		{"day before", datePtr(2024, 1, 14), false},
		{"on cutover day", datePtr(2024, 1, 15), true},
		{"day after", datePtr(2024, 1, 20), true},
		{"year after", datePtr(2025, 1, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &EffectivityContext{Date: tt.date}
			if got := IsEffective(e, ctx); got != tt.want {
				t.Errorf("IsEffective(date=%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestIsEffectiveByDateDayGranularity(t *testing.T) {
	e := dateECO(StatusCRBApproved, "2024-01-15")

	// One second into the cutover day counts, regardless of time of day.
	early := time.Date(2024, 1, 15, 0, 0, 1, 0, time.UTC)
	if !IsEffective(e, &EffectivityContext{Date: &early}) {
		t.Error("time of day must not matter on the cutover day")
	}

	// 23:59 the day before does not.
	late := time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC)
	if IsEffective(e, &EffectivityContext{Date: &late}) {
		t.Error("the evening before the cutover day must not be effective")
	}
}

func TestIsEffectiveByDateAcrossTimeZones(t *testing.T) {
	e := dateECO(StatusCRBApproved, "2024-01-15")

	// The cutover is a calendar date, not an instant. A shop east of UTC is
	// on the cutover day even while UTC midnight is still hours away.
	east := time.FixedZone("UTC+5", 5*60*60)
	morning := time.Date(2024, 1, 15, 10, 0, 0, 0, east)
	if !IsEffective(e, &EffectivityContext{Date: &morning}) {
		t.Error("cutover day in an eastern zone must be effective")
	}

	// Midnight on the cutover day in a western zone also counts.
	west := time.FixedZone("UTC-8", -8*60*60)
	midnight := time.Date(2024, 1, 15, 0, 0, 0, 0, west)
	if !IsEffective(e, &EffectivityContext{Date: &midnight}) {
		t.Error("cutover day in a western zone must be effective")
	}

	// The day before stays before, in any zone.
	eve := time.Date(2024, 1, 14, 23, 0, 0, 0, east)
	if IsEffective(e, &EffectivityContext{Date: &eve}) {
		t.Error("the day before the cutover must not be effective")
	}
}

func TestIsEffectiveByDateDefaultsToNow(t *testing.T) {
	past := dateECO(StatusCRBApproved, "2000-01-01")
	if !IsEffective(past, &EffectivityContext{}) {
		t.Error("a long-past cutover should be effective with no date in context")
	}

	future := dateECO(StatusCRBApproved, "2999-01-01")
	if IsEffective(future, &EffectivityContext{}) {
		t.Error("a far-future cutover should not be effective with no date in context")
	}
}

func TestIsEffectiveBySerialNumber(t *testing.T) {
	e := &ECO{ID: "eco-1", Status: StatusCRBApproved, Effectivity: SerialEffectivity(1000)}

	tests := []struct {
		name   string
		serial string
		want   bool
	}{
		{"below cutover", "999", false},
		{"at cutover", "1000", true},
		{"above cutover", "1500", true},
		{"missing serial", "", false},
		{"non-numeric serial", "SN-1200", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &EffectivityContext{SerialNumber: tt.serial}
			if got := IsEffective(e, ctx); got != tt.want {
				t.Errorf("IsEffective(serial=%q) = %v, want %v", tt.serial, got, tt.want)
			}
		})
	}
}

func TestIsEffectiveByWorkOrder(t *testing.T) {
	e := &ECO{ID: "eco-1", Status: StatusImplementation, Effectivity: WorkOrderEffectivity(500)}

	if IsEffective(e, &EffectivityContext{WorkOrderNumber: "499"}) {
		t.Error("work order below cutover must not be effective")
	}
	if !IsEffective(e, &EffectivityContext{WorkOrderNumber: "500"}) {
		t.Error("work order at cutover must be effective")
	}
	if IsEffective(e, &EffectivityContext{WorkOrderNumber: ""}) {
		t.Error("missing work order must fail closed")
	}
	// The evaluator consults only the field matching the kind.
	if IsEffective(e, &EffectivityContext{SerialNumber: "9999"}) {
		t.Error("serial number must be ignored for BY_WORK_ORDER")
	}
}

func TestIsEffectiveByLotBatch(t *testing.T) {
	e := &ECO{ID: "eco-1", Status: StatusCRBApproved, Effectivity: LotBatchEffectivity("LOT-2024-03")}

	if IsEffective(e, &EffectivityContext{LotBatch: "LOT-2024-02"}) {
		t.Error("earlier lot must not be effective")
	}
	if !IsEffective(e, &EffectivityContext{LotBatch: "LOT-2024-03"}) {
		t.Error("the cutover lot must be effective")
	}
	if !IsEffective(e, &EffectivityContext{LotBatch: "LOT-2024-10"}) {
		t.Error("later lot must be effective")
	}
	if IsEffective(e, &EffectivityContext{LotBatch: ""}) {
		t.Error("missing lot must fail closed")
	}
}

func TestIsEffectiveImmediate(t *testing.T) {
	ctx := &EffectivityContext{EntityType: "drawing", EntityID: "DWG-44"}

	for _, status := range []Status{StatusDraft, StatusSubmitted, StatusCRBReview,
		StatusCRBApproved, StatusImplementation, StatusVerification,
		StatusRejected, StatusCancelled} {
		e := &ECO{ID: "eco-1", Status: status, Effectivity: ImmediateEffectivity()}
		if IsEffective(e, ctx) {
			t.Errorf("IMMEDIATE must not be effective in status %s", status)
		}
	}

	completed := &ECO{ID: "eco-1", Status: StatusCompleted, Effectivity: ImmediateEffectivity()}
	if !IsEffective(completed, ctx) {
		t.Error("IMMEDIATE must be effective once completed")
	}
}

func TestIsEffectiveIsPure(t *testing.T) {
	e := &ECO{ID: "eco-1", Status: StatusCRBApproved, Effectivity: SerialEffectivity(1000)}
	ctx := &EffectivityContext{SerialNumber: "1200"}

	first := IsEffective(e, ctx)
	for i := 0; i < 100; i++ {
		if IsEffective(e, ctx) != first {
			t.Fatal("repeated evaluation must yield the same answer")
		}
	}
	if e.Effectivity.Value() != "1000" || ctx.SerialNumber != "1200" {
		t.Error("evaluation must not mutate its inputs")
	}
}

func TestCutoverDate(t *testing.T) {
	eff, err := ParseEffectivity(EffectivityByDate, "2024-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := eff.CutoverDate()
	if !ok {
		t.Fatal("expected a cutover date for BY_DATE")
	}
	if d.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("unexpected cutover date: %v", d)
	}

	if _, ok := SerialEffectivity(1000).CutoverDate(); ok {
		t.Error("serial effectivity has no cutover date")
	}
}
