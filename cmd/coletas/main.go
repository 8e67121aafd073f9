// Package main запускает HTTP-сервер сервиса заявок на забор и отслеживания грузов.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/coletas-service/internal/cache"
	"github.com/mmeshcher/coletas-service/internal/config"
	"github.com/mmeshcher/coletas-service/internal/handler"
	"github.com/mmeshcher/coletas-service/internal/middleware"
	"github.com/mmeshcher/coletas-service/internal/repository"
	"github.com/mmeshcher/coletas-service/internal/service"
)

const shutdownTimeout = 5 * time.Second

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.JWTSecret == "" {
		sugar.Fatal("configuration error: JWT secret is required")
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var trackingCache service.TrackingCache
	if rc := newTrackingCache(cfg, logger); rc != nil {
		defer rc.Close()
		trackingCache = rc
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	svc := service.NewService(repo, authMiddleware, trackingCache, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.BootstrapAdmin() {
		if err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			sugar.Fatalw("admin bootstrap error", "error", err.Error())
		}
	}

	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting coletas server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newTrackingCache подключает Redis, если он настроен и отвечает.
// Без кэша сервис продолжает работать напрямую с базой.
func newTrackingCache(cfg *config.Config, logger *zap.Logger) *cache.RedisCache {
	if cfg.RedisURL == "" {
		logger.Info("tracking cache disabled")
		return nil
	}

	rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.TrackingCacheTTL)
	if err != nil {
		logger.Warn("tracking cache disabled", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		logger.Warn("tracking cache unreachable, continuing without it", zap.Error(err))
		_ = rc.Close()
		return nil
	}
	return rc
}
