package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/machshop/machshop/pkg/cache"
	"github.com/machshop/machshop/pkg/config"
	"github.com/machshop/machshop/pkg/eco"
	"github.com/machshop/machshop/pkg/erp"
	"github.com/machshop/machshop/pkg/stores"
	"github.com/machshop/machshop/pkg/telemetry"
)

// app bundles the wired collaborators a command needs.
type app struct {
	cfg     *config.Config
	store   *stores.SQLiteStore
	service *eco.Service
	logger  zerolog.Logger
}

// loadConfig reads the --config file, or falls back to defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// openStore opens and migrates the SQLite store.
func openStore(ctx context.Context, cfg *config.Config) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            cfg.Store.Path,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Store.ConnMaxLifetimeSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// buildApp wires the engine for a one-shot command: store, optional cache,
// optional ERP, and the service facade. Metrics and events are left off;
// the serve command carries the full telemetry stack.
func buildApp(ctx context.Context) (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := buildService(cfg, store, logger, nil, nil)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() { _ = store.Close() }
	return &app{cfg: cfg, store: store, service: svc, logger: logger}, cleanup, nil
}

// buildService assembles the engine facade over the open store.
func buildService(cfg *config.Config, store *stores.SQLiteStore, logger zerolog.Logger,
	metrics *telemetry.Metrics, events *telemetry.EventPublisher) (*eco.Service, error) {

	var repo eco.Repository = store
	if cfg.Cache.Enabled {
		cached, err := cache.NewRepository(store, cfg.Cache.Size, logger)
		if err != nil {
			return nil, err
		}
		repo = cached
	}

	var (
		docs      eco.DocumentStore    = store
		inventory eco.InventoryGateway = emptyInventory{}
	)
	if cfg.ERP.BaseURL != "" {
		client, err := erp.NewClient(cfg.ERP, logger)
		if err != nil {
			return nil, err
		}
		inventory = client
		docs = &fallbackDocs{local: store, remote: client}
	}

	return eco.NewService(eco.ServiceConfig{
		Repository: repo,
		Documents:  docs,
		Inventory:  inventory,
		Planner: eco.PlannerConfig{
			HighImpactThreshold:             cfg.Planner.HighImpactThreshold,
			HighImpactExtensionDays:         cfg.Planner.HighImpactExtensionDays,
			NonInterchangeableExtensionDays: cfg.Planner.NonInterchangeableExtensionDays,
		},
		Logger:  logger,
		Metrics: metrics,
		Events:  events,
	})
}

// fallbackDocs consults the local document table first and the ERP document
// master for anything not recorded locally.
type fallbackDocs struct {
	local  *stores.SQLiteStore
	remote *erp.Client
}

func (d *fallbackDocs) CurrentVersion(ctx context.Context, documentType, documentID string) (string, error) {
	version, err := d.local.CurrentVersion(ctx, documentType, documentID)
	if err == nil {
		return version, nil
	}
	if !eco.IsNotFound(err) {
		return "", err
	}
	return d.remote.CurrentVersion(ctx, documentType, documentID)
}

// emptyInventory stands in when no ERP is configured: every part reads as
// zero stock, so transition plans degrade to the priority base period.
type emptyInventory struct{}

func (emptyInventory) PartInventory(_ context.Context, partNumber string) (*eco.PartInventory, error) {
	return &eco.PartInventory{PartNumber: partNumber}, nil
}
