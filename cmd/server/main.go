package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/renthub/config"
	"github.com/d60-Lab/renthub/internal/api"
	"github.com/d60-Lab/renthub/internal/api/handler"
	"github.com/d60-Lab/renthub/internal/legacy"
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/internal/service"
	"github.com/d60-Lab/renthub/pkg/database"
	"github.com/d60-Lab/renthub/pkg/logger"
	"github.com/d60-Lab/renthub/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// @title renthub API
// @version 1.0
// @description rental marketplace with legacy-platform sync engine
func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing := must(tracing.Init(ctx, "renthub", cfg.Tracing.Endpoint))
	defer func() { _ = shutdownTracing(ctx) }()

	db := must(database.InitDB(cfg))

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// repositories
	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	listingRepo := repository.NewListingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	queueRepo := repository.NewSyncQueueRepository(db, repository.BackoffPolicy{
		Base: cfg.Sync.BackoffBase,
		Cap:  cfg.Sync.BackoffCap,
	})

	// sync engine
	client := legacy.NewHTTPClient(cfg.Legacy)
	records := service.NewRecordDirectory(userRepo, accountRepo, listingRepo, bookingRepo)
	resolver := service.NewSignupResolver(userRepo, accountRepo, client)
	processor := service.NewProcessor(queueRepo, client, records, resolver, cfg.Sync.BatchDeadline)
	syncSvc := service.NewSyncService(queueRepo, processor, resolver, cfg.Sync)
	controller := service.NewRetryController(queueRepo, processor, rdb, cfg.Sync)
	stopController := controller.Start()

	// application services
	signupSvc := service.NewSignupService(db, userRepo, accountRepo, syncSvc)
	listingSvc := service.NewListingService(db, listingRepo, syncSvc)
	bookingSvc := service.NewBookingService(db, bookingRepo, syncSvc)

	h := handler.New(signupSvc, listingSvc, bookingSvc, syncSvc, controller, queueRepo)
	router := api.NewRouter(h, cfg.Server.Mode)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = stopController(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
}
