package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/machshop/machshop/pkg/erp"
	"github.com/machshop/machshop/pkg/telemetry"
)

// Config is the top-level MachShop configuration.
type Config struct {
	// Store configures the SQLite persistence layer.
	Store StoreConfig `yaml:"store" validate:"required"`

	// ERP configures the plant ERP client. Optional: when the base URL is
	// empty the planner and resolver fall back to locally stored data only.
	ERP erp.Config `yaml:"erp"`

	// Cache configures the in-memory resolver cache.
	Cache CacheConfig `yaml:"cache"`

	// Planner configures the transition planner thresholds.
	Planner PlannerConfig `yaml:"planner"`

	// Telemetry configures logging, tracing, metrics, and events.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// StoreConfig holds SQLite settings.
type StoreConfig struct {
	// Path is the database file path, or :memory: for an ephemeral store.
	Path string `yaml:"path" validate:"required"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=0"`

	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int `yaml:"max_idle_conns" validate:"gte=0"`

	// ConnMaxLifetimeSeconds recycles pooled connections.
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// CacheConfig holds resolver cache settings.
type CacheConfig struct {
	// Enabled toggles the LRU in front of the repository.
	Enabled bool `yaml:"enabled"`

	// Size is the entry budget per cache.
	Size int `yaml:"size" validate:"gte=0"`
}

// PlannerConfig holds transition planner thresholds.
type PlannerConfig struct {
	// HighImpactThreshold is the inventory exposure above which the
	// transition window is extended.
	HighImpactThreshold float64 `yaml:"high_impact_threshold" validate:"gte=0"`

	// HighImpactExtensionDays is the extension applied above the threshold.
	HighImpactExtensionDays int `yaml:"high_impact_extension_days" validate:"gte=0"`

	// NonInterchangeableExtensionDays is the extension for form-fit-function
	// breaking changes.
	NonInterchangeableExtensionDays int `yaml:"non_interchangeable_extension_days" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:                   "machshop.db",
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
		},
		Planner: PlannerConfig{
			HighImpactThreshold:             100000,
			HighImpactExtensionDays:         15,
			NonInterchangeableExtensionDays: 30,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads and validates a YAML configuration file, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	mu      sync.RWMutex
	current *Config
}

// NewWatcher creates a watcher seeded with the current file contents.
func NewWatcher(path string, logger zerolog.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:    path,
		logger:  logger.With().Str("component", "config-watcher").Logger(),
		current: cfg,
	}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Watch starts watching the config file and calls reloadFn with each valid
// new configuration. Invalid edits are logged and skipped; the previous
// configuration stays in effect.
func (w *Watcher) Watch(reloadFn func(*Config) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher

	if err := watcher.Add(w.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	go w.processEvents(reloadFn)

	w.logger.Info().Str("path", w.path).Msg("Started watching config file")
	return nil
}

// processEvents debounces write events and applies reloads.
func (w *Watcher) processEvents(reloadFn func(*Config) error) {
	var reloadTimer *time.Timer
	reloadDelay := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug().
					Str("file", event.Name).
					Str("op", event.Op.String()).
					Msg("Config file changed")

				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(reloadDelay, func() {
					if err := w.reload(reloadFn); err != nil {
						w.logger.Error().Err(err).Msg("Failed to reload config")
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// reload parses, validates, publishes, and applies the new configuration.
func (w *Watcher) reload(reloadFn func(*Config) error) error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	if reloadFn != nil {
		if err := reloadFn(cfg); err != nil {
			return fmt.Errorf("failed to apply reloaded config: %w", err)
		}
	}

	w.logger.Info().Msg("Config reloaded successfully")
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
