package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/rifamania-backend/api/routes"
	"github.com/ArowuTest/rifamania-backend/internal/app"
	"github.com/ArowuTest/rifamania-backend/internal/config"
	"github.com/ArowuTest/rifamania-backend/internal/handlers"
	"github.com/ArowuTest/rifamania-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			slog.Error("Error closing connections", "error", err)
		}
	}()

	limiter := middleware.NewLimiterStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartJanitor(ctx)

	if cfg.Sweeper.Enabled {
		a.Sweeper.Start(ctx, cfg.Sweeper.Interval)
		slog.Info("Expiry sweeper started", "interval", cfg.Sweeper.Interval)
	}

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		PurchaseHandler:    handlers.NewPurchaseHandler(a.Purchases),
		PublicationHandler: handlers.NewPublicationHandler(a.Publication),
		WebhookHandler:     handlers.NewWebhookHandler(a.Reconciler),
		Limiter:            limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exiting")
}
