package app

import (
	"errors"
	"log/slog"

	"fxrate_go/internal/engine"
	"fxrate_go/internal/infra"
	"fxrate_go/internal/infra/storage"
	"fxrate_go/internal/service"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.Store
	Generator *engine.Generator
	History   *service.HistoryService
	Market    *service.MarketService
	Rates     *service.RateService
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up logging, opens the store and wires services.
// logLevel, when non-empty, overrides the configured level.
func (b *Bootstrap) Initialize(configPath, logLevel string) error {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	// 1. Load Config (defaults when the file is absent)
	cfg, err := infra.LoadOrDefault(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Debug("Bootstrapping", slog.String("app", cfg.App.Name), slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Store = store
	if warn := store.MigrationWarning(); warn != nil {
		slog.Warn("Database running without volume column", slog.Any("error", warn))
	}
	slog.Debug("Database initialized",
		slog.String("path", store.Path()),
		slog.Int("schema_version", store.SchemaVersion()),
		slog.Bool("volume", store.HasVolume()),
	)

	// 4. Simulation and services
	src := engine.SystemSource()
	if cfg.History.Seed != 0 {
		// Shared by the overview workers, so draws must be serialized.
		src = engine.Locked(engine.SeededSource(cfg.History.Seed))
	}
	b.Generator = engine.NewGenerator(src)
	b.History = service.NewHistoryService(store, b.Generator).
		WithPersistGenerated(cfg.History.PersistGenerated)
	b.Market = service.NewMarketService(b.History)

	client := infra.NewRatesClientWithConfig(cfg, func() map[string]float64 {
		return engine.SimulatedRates(src)
	})
	b.Rates = service.NewRateService(client, b.History)

	return nil
}

// Close releases the store.
func (b *Bootstrap) Close() error {
	if b.Store == nil {
		return errors.New("bootstrap not initialized")
	}
	return b.Store.Close()
}
