// Package bootstrap holds the wiring shared by the HTTP server and the batch command.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/crm-analytics/engine"
	"github.com/fastygo/crm-analytics/internal/config"
	"github.com/fastygo/crm-analytics/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/crm-analytics/internal/infrastructure/postgres"
	"github.com/fastygo/crm-analytics/internal/infrastructure/sqldb"
	"github.com/fastygo/crm-analytics/repository"
	"github.com/fastygo/crm-analytics/repository/postgres"
	"github.com/fastygo/crm-analytics/repository/sqlstore"
)

// History is an open history store together with the handle the monitor pings.
type History struct {
	Repository repository.HistoryRepository
	Pinger     monitor.Pinger
	close      func() error
}

// Close releases the underlying connection pool.
func (h *History) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close()
}

// OpenHistory connects the history store selected by DB_DRIVER. PostgreSQL
// schemas are migrated first when migrations are enabled.
func OpenHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*History, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, cfg.AppName, logger)
		if err != nil {
			return nil, err
		}
		return &History{
			Repository: postgres.NewHistoryRepository(pool),
			Pinger:     pool,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	default:
		db, err := sqldb.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return &History{
			Repository: sqlstore.NewHistoryRepository(db),
			Pinger:     monitor.SQLPinger{DB: db},
			close:      db.Close,
		}, nil
	}
}

// EngineOptions maps the analytics settings onto the engine's bounds.
func EngineOptions(cfg config.AnalyticsConfig) engine.Options {
	return engine.Options{
		RecentLimit:     cfg.RecentLimit,
		TopSpeciesLimit: cfg.TopSpeciesLimit,
		PeriodMonths:    cfg.PeriodMonths,
		TimelineLimit:   cfg.TimelineLimit,
		TimelineWindow:  cfg.TimelineWindow,
	}
}
