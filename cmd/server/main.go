package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/api"
	"github.com/KrishTanna28/SlotSwapper/internal/app"
	"github.com/KrishTanna28/SlotSwapper/internal/config"
	"github.com/KrishTanna28/SlotSwapper/internal/notify"
	"github.com/KrishTanna28/SlotSwapper/internal/repository"
	"github.com/KrishTanna28/SlotSwapper/internal/repository/base"
	"github.com/KrishTanna28/SlotSwapper/internal/repository/memory"
	"github.com/KrishTanna28/SlotSwapper/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		txManager service.TxManager
		slotRepo  service.SlotRepository
		swapRepo  service.SwapRequestRepository
	)

	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("Running with the in-memory store, state is not durable")
		store := memory.NewStore()
		txManager = store
		slotRepo = store.Slots()
		swapRepo = store.SwapRequests()

	default:
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatal("Failed to create connection pool", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}

		migrator, err := app.NewMigrator(pool, cfg.MigrationsDir)
		if err != nil {
			logger.Fatal("Failed to create migrator", zap.Error(err))
		}
		if err := migrator.Run(ctx); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		if err := migrator.Close(); err != nil {
			logger.Warn("Failed to close migrator", zap.Error(err))
		}

		db := base.NewDB(pool)
		txManager = db
		slotRepo = repository.NewSlotRepository(db)
		swapRepo = repository.NewSwapRequestRepository(db)
	}

	hub := notify.NewHub(logger)
	slotService := service.NewSlotService(txManager, slotRepo, logger)
	swapService := service.NewSwapService(txManager, slotRepo, swapRepo, hub, logger)

	server := api.NewServer(slotService, swapService, hub, cfg.JWTSecret, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.Store),
			zap.String("environment", cfg.Environment),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}
