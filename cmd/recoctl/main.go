// Command recoctl queries the recommendation engine from the terminal and
// administers its stores.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drug-reco-engine/internal/app"
	"github.com/drug-reco-engine/internal/config"
	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/logging"
)

type rootOptions struct {
	configFile string
	fixture    string
	logLevel   string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "recoctl",
		Short:        "Drug recommendation engine command-line tool",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.fixture, "fixture", "", "read records from a JSON fixture instead of the configured store")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(dosesCmd(opts))
	rootCmd.AddCommand(complaintsCmd(opts))
	rootCmd.AddCommand(effectivenessCmd(opts))
	rootCmd.AddCommand(outliersCmd(opts))
	rootCmd.AddCommand(qualityCmd(opts))
	rootCmd.AddCommand(historyCmd(opts))
	rootCmd.AddCommand(recommendCmd(opts))
	rootCmd.AddCommand(snapshotCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(importCmd(opts))
	rootCmd.AddCommand(feedbackCmd(opts))
	rootCmd.AddCommand(setupCmd())
	return rootCmd
}

// load reads and validates the configuration with the command-line
// overrides applied.
func (o *rootOptions) load() (*domain.Config, *logrus.Logger, error) {
	manager, err := config.NewManager(o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	cfg := manager.GetConfig()
	if o.fixture != "" {
		cfg.DataStore.Driver = config.DriverFixture
		cfg.DataStore.FixturePath = o.fixture
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(domain.LoggingConfig{
		Level:  o.logLevel,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// open wires the engine. With rebuild set, a snapshot is published before
// returning.
func (o *rootOptions) open(ctx context.Context, rebuild bool) (*app.App, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if rebuild {
		if _, err := a.Registry.Rebuild(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("building snapshot: %w", err)
		}
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
