package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/api"
	"github.com/drug-reco-engine/internal/app"
	"github.com/drug-reco-engine/internal/config"
	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Load configuration
	configManager, err := config.NewManager(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Server failed")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"driver":      cfg.DataStore.Driver,
		"classifier":  cfg.Classifier.Kind,
	}).Info("Starting drug recommendation server")

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.OpenFeedback()
	if err != nil {
		return err
	}
	defer store.Close()

	// A failed first build leaves the server up and reporting degraded;
	// the refresher and the rebuild endpoint retry.
	if _, err := a.Registry.Rebuild(ctx); err != nil {
		logger.WithError(err).Warn("Initial snapshot build failed")
	}
	go a.Registry.RunRefresher(ctx, cfg.Snapshot.RefreshInterval)

	server := api.NewServer(cfg.Server, a.Service, store, logger)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
