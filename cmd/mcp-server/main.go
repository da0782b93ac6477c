// Package main runs the recommendation engine as an MCP stdio server. It
// needs no external services: records come from a JSON fixture or a local
// SQLite file under the data directory.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/api"
	"github.com/drug-reco-engine/internal/app"
	"github.com/drug-reco-engine/internal/config"
	"github.com/drug-reco-engine/internal/logging"
	"github.com/drug-reco-engine/internal/mcp"
)

func main() {
	lite := config.LoadLiteConfig()
	if err := lite.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger, err := logging.NewLogger(lite.Logging())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, lite, logger); err != nil {
		logger.WithError(err).Error("MCP server failed")
		os.Exit(1)
	}
	logger.Info("MCP server stopped")
}

func run(ctx context.Context, lite *config.LiteConfig, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"data_dir": lite.DataDir,
		"fixture":  lite.FixturePath,
	}).Info("Starting drug recommendation MCP server")

	a, err := app.New(ctx, lite.Config(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.OpenFeedback()
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := a.Registry.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}
	logger.WithField("snapshot_id", snap.ID()).Info("Snapshot ready")

	server, err := mcp.NewServer(a.Service, logger, api.Version, mcp.WithFeedbackStore(store))
	if err != nil {
		return err
	}
	return server.Start(ctx)
}
