package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/funneldesk/funnel-api/internal/config"
	"github.com/funneldesk/funnel-api/internal/engine"
	"github.com/funneldesk/funnel-api/internal/http/handler"
	"github.com/funneldesk/funnel-api/internal/http/middleware"
	"github.com/funneldesk/funnel-api/internal/http/router"
	"github.com/funneldesk/funnel-api/internal/jobs"
	"github.com/funneldesk/funnel-api/internal/logger"
	"github.com/funneldesk/funnel-api/internal/store"
	"go.uber.org/zap"
)

// @title Funneldesk API
// @version 1.0
// @description Single-user sales funnel lead board: leads through funnel stages with analytics and durable persistence

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	// Initialize the persistence backend
	st, err := store.NewStore(&cfg.Store, cfg.Board.Key, log)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	log.Info("Store initialized",
		zap.String("mode", cfg.Store.Mode),
		zap.String("board_key", cfg.Board.Key),
	)

	// Hydrate the funnel engine, seeding on first run
	eng, err := engine.New(ctx, st, log, engine.Options{
		DefaultStage:        cfg.Board.DefaultStage,
		ForecastHorizonDays: cfg.Board.ForecastHorizonDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	leadHandler := handler.NewLeadHandler(eng, log)
	stageHandler := handler.NewStageHandler(eng, log)
	strategyHandler := handler.NewStrategyHandler(eng, log)
	activityHandler := handler.NewActivityHandler(eng, log)
	dashboardHandler := handler.NewDashboardHandler(eng, log)
	exportHandler := handler.NewExportHandler(eng, log)

	rt := router.NewRouter(
		cfg,
		log,
		st,
		rateLimiter,
		leadHandler,
		stageHandler,
		strategyHandler,
		activityHandler,
		dashboardHandler,
		exportHandler,
	)

	// Start the autosave safety net
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterAutosaveJob(scheduler, eng, log, cfg.Board.AutosaveInterval()); err != nil {
		log.Error("Failed to register autosave job", zap.Error(err))
	} else {
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
		log.Info("Scheduler stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Final snapshot so nothing between autosave ticks is lost
		if err := eng.Flush(shutdownCtx); err != nil {
			log.Warn("Final flush failed", zap.Error(err))
		}
		if err := st.Close(); err != nil {
			log.Warn("Error closing store", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
