package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pawonlab/stockwise/internal/api"
	"github.com/pawonlab/stockwise/internal/cache"
	"github.com/pawonlab/stockwise/internal/config"
	"github.com/pawonlab/stockwise/internal/engine/analyzer"
	"github.com/pawonlab/stockwise/internal/engine/reorder"
	"github.com/pawonlab/stockwise/internal/repository"
	"github.com/pawonlab/stockwise/internal/repository/postgres"
	"github.com/pawonlab/stockwise/internal/service"
	"github.com/pawonlab/stockwise/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	insightsCache, err := cache.NewInsightsCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		insightsCache = cache.NewNoopInsightsCache()
	}

	advisor := reorder.NewAdvisor(
		reorder.WithWindowDays(cfg.Engine.UsageWindowDays),
		reorder.WithLeadTimeDays(cfg.Engine.LeadTimeDays),
		reorder.WithHorizonDays(cfg.Engine.ForecastHorizon),
	)
	inventoryService := service.NewInventoryService(
		repository.NewInventoryRepository(db),
		analyzer.New(advisor, cfg.Engine.AnalyzerWorkers),
		insightsCache,
	)

	router := api.NewRouter(inventoryService, cfg)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
