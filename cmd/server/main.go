package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/crm-analytics/api/handler"
	"github.com/fastygo/crm-analytics/internal/bootstrap"
	"github.com/fastygo/crm-analytics/internal/config"
	"github.com/fastygo/crm-analytics/internal/infrastructure/mirror"
	"github.com/fastygo/crm-analytics/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/crm-analytics/internal/infrastructure/redis"
	"github.com/fastygo/crm-analytics/internal/metrics"
	"github.com/fastygo/crm-analytics/internal/middleware"
	"github.com/fastygo/crm-analytics/internal/router"
	"github.com/fastygo/crm-analytics/internal/services"
	"github.com/fastygo/crm-analytics/internal/services/lifecycle"
	"github.com/fastygo/crm-analytics/pkg/httpcontext"
	"github.com/fastygo/crm-analytics/pkg/logger"
	"github.com/fastygo/crm-analytics/repository"
	redisRepo "github.com/fastygo/crm-analytics/repository/redis"
	"github.com/fastygo/crm-analytics/usecase"
	analyticsUC "github.com/fastygo/crm-analytics/usecase/analytics"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()

	var m *metrics.Metrics
	if cfg.HTTP.EnableMetrics {
		m = metrics.New("crm_analytics")
	}

	history, err := bootstrap.OpenHistory(appCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("history store connection failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	manager.RegisterCloser("history_store", history)

	var (
		redisClient *redis.Client
		cache       repository.SnapshotCache
	)
	redisClient, err = redisInfra.NewClient(appCtx, cfg.Redis, cfg.AppName)
	switch {
	case errors.Is(err, redisInfra.ErrDisabled):
		zapLogger.Info("snapshot cache disabled")
	case err != nil:
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	default:
		manager.RegisterCloser("redis", redisClient)
		cache = redisRepo.NewSnapshotCache(redisClient, cfg.Analytics.CacheTTL)
	}

	var (
		mirrorStore *mirror.Store
		historyCopy usecase.HistoryMirror
	)
	if cfg.Mirror.Enabled {
		mirrorStore, err = mirror.Open(cfg.Mirror.Path, "history")
		if err != nil {
			zapLogger.Fatal("failed to open history mirror", zap.String("path", cfg.Mirror.Path), zap.Error(err))
		}
		manager.RegisterCloser("mirror", mirrorStore)
		historyCopy = mirrorStore

		janitor := services.NewMirrorJanitor(mirrorStore, m, zapLogger, services.JanitorConfig{
			Interval:  cfg.Mirror.SweepInterval,
			Retention: time.Duration(cfg.Mirror.RetentionHours) * time.Hour,
		})
		janitor.Start()
		manager.Register("mirror_janitor", func(ctx context.Context) error {
			janitor.Stop(ctx)
			return nil
		})
	}

	mon := monitor.New(monitor.Dependencies{
		Database: history.Pinger,
		Driver:   cfg.Database.Driver,
		Redis:    redisClient,
		Mirror:   mirrorStore,
	}, 10*time.Second, m, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	analyticsUseCase := analyticsUC.New(
		history.Repository,
		cache,
		historyCopy,
		bootstrap.EngineOptions(cfg.Analytics),
		m,
		zapLogger,
	)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Analytics: apiHandler.NewAnalyticsHandler(analyticsUseCase, ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if m != nil {
		handlers.Metrics = m.Handler()
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("driver", cfg.Database.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server stopped", zap.Error(err))
			cancel()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
