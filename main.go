// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"travel-booking/cmd"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/usecase"
	"travel-booking/internal/wire"
	"travel-booking/pkg/database"
	"travel-booking/pkg/rabbitmq"
	"travel-booking/pkg/utils"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Booking lifecycle events are best effort, so a broker outage must not
	// keep the API from starting.
	var events usecase.EventPublisher
	publisher, err := rabbitmq.NewPublisher(config.Rabbit.URL, config.Rabbit.Exchange)
	if err != nil {
		logger.Warn("Event publisher disabled", zap.Error(err))
	} else {
		defer publisher.Close()
		events = publisher
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, events, config, logger)

	// Background reconciliation sweeps
	if config.Reconciler.ScheduleDisabled {
		logger.Info("Reconciliation scheduler disabled")
	} else {
		go app.Service.Reconcile.RunScheduled(ctx)
	}

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Application stopped")
}
