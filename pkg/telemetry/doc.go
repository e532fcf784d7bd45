// Package telemetry provides observability instrumentation for the MachShop
// effectivity engine.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and an in-process event publisher
// into a single system for monitoring engine operations.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "machshop-eco"
//
//	tel, err := telemetry.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Attach it to a context so downstream code can pick it up:
//
//	ctx = tel.WithContext(ctx)
//
// # Metrics
//
// The engine exposes effectivity checks by result, version resolutions by
// source tier, status transitions by edge, validation failures by code, and
// a resolution duration histogram. Start the scrape endpoint with
// Metrics.StartMetricsServer.
//
// # Events
//
// Engine operations publish events (eco.status_changed, eco.effectivity_set,
// version.resolved, transition_plan.computed) to in-process subscribers, for
// audit trails and notifications owned by the surrounding application.
package telemetry
