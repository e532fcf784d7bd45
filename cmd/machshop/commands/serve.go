package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/machshop/machshop/pkg/config"
	"github.com/machshop/machshop/pkg/eco"
	"github.com/machshop/machshop/pkg/stores"
	"github.com/machshop/machshop/pkg/telemetry"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the effectivity engine as a long-lived process",
		Long: `Serve runs the engine with the full telemetry stack: the metrics
endpoint, the event stream, and tracing when configured. The configuration
file is watched for changes and reloaded in place.`,
		Example: `  # Run with a config file
  machshop serve --config machshop.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	return cmd
}

// engineServer holds the long-lived process state. The service is built over
// the live metrics and event collectors, and a config reload swaps it in
// place so planner tunables take effect without a restart.
type engineServer struct {
	cfg     *config.Config
	store   *stores.SQLiteStore
	service *eco.Service
	tel     *telemetry.Telemetry
	logger  zerolog.Logger
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(&cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	logger := tel.Logger
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc, err := buildService(cfg, store, logger, tel.Metrics, tel.Events)
	if err != nil {
		return err
	}
	srv := &engineServer{cfg: cfg, store: store, service: svc, tel: tel, logger: logger}

	if err := tel.Metrics.StartMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// Mirror engine events into the log stream so operators can follow
	// them without a separate consumer.
	eventLogger := logger.With().Str("component", "events").Logger()
	tel.Events.Subscribe(func(event telemetry.Event) {
		eventLogger.Info().
			Str("type", event.Type).
			Str("eco_id", event.ECOID).
			Str("actor", event.Actor).
			Msg(event.Message)
	}, nil)

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()

		err = watcher.Watch(func(next *config.Config) error {
			// Pool sizing and stack composition are fixed at startup;
			// reloads pick up tunables like the planner thresholds. The
			// service is rebuilt so the new weighting applies.
			cfg.Planner = next.Planner
			rebuilt, err := buildService(cfg, store, logger, tel.Metrics, tel.Events)
			if err != nil {
				return err
			}
			srv.service = rebuilt
			logger.Info().Msg("Configuration reloaded")
			return nil
		})
		if err != nil {
			return err
		}
	}

	return srv.run(ctx)
}

func (s *engineServer) run(ctx context.Context) error {
	s.logger.Info().
		Str("store", s.cfg.Store.Path).
		Bool("cache", s.cfg.Cache.Enabled).
		Bool("erp", s.cfg.ERP.BaseURL != "").
		Msg("Effectivity engine running")

	healthTicker := time.NewTicker(30 * time.Second)
	defer healthTicker.Stop()

loop:
	for {
		select {
		case <-healthTicker.C:
			if err := s.store.HealthCheck(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Store health check failed")
				_ = s.tel.Events.Publish(telemetry.Event{
					Type:    "store.health_check_failed",
					Level:   telemetry.EventLevelError,
					Message: err.Error(),
				})
			}
		case <-ctx.Done():
			break loop
		}
	}

	s.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.tel.Shutdown(shutdownCtx)
}
