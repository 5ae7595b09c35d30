// Package main starts the HTTP server of the finance co-pilot service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soundcu/finance-copilot/internal/advisor"
	"github.com/soundcu/finance-copilot/internal/cache"
	"github.com/soundcu/finance-copilot/internal/config"
	"github.com/soundcu/finance-copilot/internal/engine"
	"github.com/soundcu/finance-copilot/internal/handler"
	"github.com/soundcu/finance-copilot/internal/middleware"
	"github.com/soundcu/finance-copilot/internal/repository"
	"github.com/soundcu/finance-copilot/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var draftSource engine.DraftSource
	if cfg.AdvisorAPIKey != "" {
		draftSource = advisor.NewClient(cfg.AdvisorAPIKey, cfg.AdvisorAPIURL, logger)
	}

	var catalogCache cache.Cache
	if cfg.RedisAddress != "" {
		rc := cache.NewRedisCache(cfg.RedisAddress)
		defer rc.Close()
		catalogCache = rc
	}

	svc := service.NewService(repo, draftSource, catalogCache)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting co-pilot server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
