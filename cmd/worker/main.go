package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tazkara/cmd/worker/jobs"
	"tazkara/internal/config"
	"tazkara/internal/database"
	"tazkara/internal/logger"
	"tazkara/internal/messaging"
	"tazkara/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// The worker gets its own NATS client id so it can run alongside the API.
	cfg.NATS.ClientID = "tazkara-worker"

	logger.Get().Info("Starting worker service...")

	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	var publisher jobs.Publisher
	var natsClient *messaging.NATSClient
	if cfg.NATS.URL != "" {
		natsClient, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			logger.Get().Warn("NATS unavailable, expiration messages disabled", "error", err)
		} else {
			publisher = natsClient
		}
	}

	repos := repository.NewRepositories(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := jobs.NewExpirationJob(repos.Bookings, publisher, cfg.BookingExpiration)
	job.Start(ctx)

	logger.Get().Info("Worker service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down worker service...")

	job.Stop()
	cancel()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := db.Close(shutdownCtx); err != nil {
		logger.Get().Error("Error closing MongoDB connection", "error", err)
	}

	logger.Get().Info("Worker service stopped")
}
