package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/range-feed-service/internal/config"
	"github.com/maxviazov/range-feed-service/internal/handler"
	"github.com/maxviazov/range-feed-service/internal/logger"
	"github.com/maxviazov/range-feed-service/internal/repository"
	pgrepo "github.com/maxviazov/range-feed-service/internal/repository/postgres"
	redisrepo "github.com/maxviazov/range-feed-service/internal/repository/redis"
	"github.com/maxviazov/range-feed-service/internal/service"
)

// storage bundles whatever the configured driver provides.
type storage struct {
	events repository.EventRepository
	tx     repository.TxManager
	pinger repository.Pinger
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config, appLogger *zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		rc, err := redisrepo.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		appLogger.Info().Str("addr", cfg.Redis.Addr).Str("prefix", cfg.Redis.KeyPrefix).Msg("Successfully connected to Redis")
		return &storage{
			events: redisrepo.NewEventRepository(rc, cfg.Redis.KeyPrefix),
			tx:     redisrepo.NewTxManager(),
			pinger: redisrepo.NewPinger(rc),
			close:  func() { _ = rc.Close() },
		}, nil
	default:
		db, err := repository.New(ctx, cfg, appLogger)
		if err != nil {
			return nil, err
		}
		return &storage{
			events: pgrepo.NewEventRepository(db.Pool()),
			tx:     pgrepo.NewTxManager(db.Pool()),
			pinger: pgrepo.NewPinger(db.Pool()),
			close:  db.Close,
		}, nil
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config loading failed: %v", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, &appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("storage initialization failed")
	}
	defer store.close()

	feeds, err := service.NewFeedService(store.events, store.tx, cfg.Pagination, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("feed service initialization failed")
	}

	if cfg.Logger.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(handler.RequestLogger(appLogger), handler.Recovery(appLogger), handler.Timeout(cfg.HTTP.RequestTimeout))
	handler.Register(r, store.pinger, feeds)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("addr", srv.Addr).
			Str("storage", cfg.Storage.Driver).
			Str("unit", cfg.Pagination.Unit).
			Int64("max_count", cfg.Pagination.MaxCount).
			Bool("long_polling", cfg.Pagination.LongPolling).
			Msg("🚀 Service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			appLogger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	appLogger.Info().Msg("✅ Server stopped")
}
