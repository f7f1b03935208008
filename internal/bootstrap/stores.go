// Package bootstrap opens the storage backends shared by the API server and
// the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/config"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/persistence"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository/memstore"
)

// Stores holds the repositories. Postgres is nil when the in-memory store is in use.
type Stores struct {
	Tickets  repository.TicketRepository
	Users    repository.UserRepository
	Settings repository.SettingsRepository
	History  repository.TicketHistoryRepository
	Postgres *persistence.Postgres
}

// OpenStores connects to Postgres when a DSN is configured, running migrations
// if enabled, and otherwise falls back to an in-memory store.
func OpenStores(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Stores, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		mem := memstore.New()
		return &Stores{
			Tickets:  mem.Tickets(),
			Users:    mem.Users(),
			Settings: mem.Settings(),
			History:  mem.History(),
		}, nil
	}

	pg, err := persistence.NewPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool := pg.PoolHandle()
	return &Stores{
		Tickets:  repository.NewTicketRepository(pool),
		Users:    repository.NewUserRepository(pool),
		Settings: repository.NewSettingsRepository(pool),
		History:  repository.NewTicketHistoryRepository(pool),
		Postgres: pg,
	}, nil
}

// Close releases the Postgres pool if one was opened.
func (s *Stores) Close() {
	if s != nil {
		s.Postgres.Close()
	}
}

// OpenRedis connects when Redis is enabled. A nil result means disabled.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *persistence.Redis {
	if !cfg.Enabled {
		logger.Info("redis disabled; settings cache and cross-instance streams are off")
		return nil
	}
	return persistence.NewRedis(ctx, cfg, logger)
}
