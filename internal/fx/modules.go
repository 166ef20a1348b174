package fx

import (
	"atlantis-companion/internal/config"
	"atlantis-companion/internal/database"
	"atlantis-companion/internal/logger"
	"atlantis-companion/internal/server"
	"atlantis-companion/internal/service"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideStore selects the configured storage backend. The engine only ever
// sees the Store interface.
func ProvideStore(cfg *config.Config, lc fx.Lifecycle, log zerolog.Logger) (storage.Store, error) {
	if cfg.StorageBackend == config.BackendMemory {
		log.Info().Msg("using in-memory storage backend")
		return storage.NewMemoryStore(), nil
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() error {
		return db.Close()
	}))
	return storage.NewSQLiteStore(db, log), nil
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(ProvideStore),
	// svc
	fx.Provide(service.NewRecalcEngine),
	fx.Provide(service.NewLifecycleManager),
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewAdvisor),
	fx.Provide(service.NewHeroStatsAggregator),
	fx.Provide(service.NewTransferService),
	// server
	fx.Provide(server.NewCompanionServer),
)
