package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/machshop/machshop/pkg/config"
	"github.com/machshop/machshop/pkg/eco"
	"github.com/machshop/machshop/pkg/telemetry"
)

// TestBuildServiceWithTelemetry tests that the long-lived wiring delivers
// engine events through the shared publisher
func TestBuildServiceWithTelemetry(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "machshop.db")
	cfg.Cache.Enabled = false

	store, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "machshop"})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	events, err := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("failed to create event publisher: %v", err)
	}

	var got []string
	events.Subscribe(func(event telemetry.Event) {
		got = append(got, event.Type)
	}, nil)

	svc, err := buildService(cfg, store, zerolog.Nop(), metrics, events)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	e := &eco.ECO{
		ID:       "eco-1",
		Number:   "ECO-2026-001",
		Title:    "Bracket material change",
		Status:   eco.StatusDraft,
		Priority: eco.PriorityMedium,
	}
	if err := store.CreateECO(ctx, e); err != nil {
		t.Fatalf("failed to create ECO: %v", err)
	}

	if err := svc.Transition(ctx, "eco-1", eco.StatusSubmitted, "engineer@machshop"); err != nil {
		t.Fatalf("failed to transition: %v", err)
	}

	if len(got) != 1 || got[0] != telemetry.EventTypeStatusChanged {
		t.Errorf("expected a status change event on the shared publisher, got %v", got)
	}
}
