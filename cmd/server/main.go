package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skill-match/internal/app"
	"skill-match/internal/config"
	"skill-match/internal/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	bootstrap, cleanup, err := app.Bootstrap(cfg, zl)
	if err != nil {
		zl.Fatal("failed to bootstrap app", zap.Error(err))
	}
	defer func() {
		if err := cleanup(); err != nil {
			zl.Warn("cleanup error", zap.Error(err))
		}
	}()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	err = bootstrap.Container.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		zl.Fatal("invalid HTTP port", zap.Error(err))
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	bootstrap.Container.Scheduler.Start(rootCtx)

	errCh := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", addr), zap.String("env", cfg.App.Environment))
		errCh <- bootstrap.Fiber.Listen(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zl.Error("server error", zap.Error(err))
		}
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bootstrap.Fiber.ShutdownWithContext(ctx); err != nil {
			zl.Warn("shutdown error", zap.Error(err))
		}
	}
}
