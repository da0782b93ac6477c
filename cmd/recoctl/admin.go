package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drug-reco-engine/internal/app"
	"github.com/drug-reco-engine/internal/config"
	"github.com/drug-reco-engine/internal/database"
	"github.com/drug-reco-engine/internal/repository"
	"github.com/drug-reco-engine/internal/setup"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	runner := func() (*database.MigrationRunner, error) {
		cfg, logger, err := opts.load()
		if err != nil {
			return nil, err
		}
		return database.NewMigrationRunner(config.DatabaseURL(cfg.Database), cfg.Database.MigrationsPath, logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Up(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Down(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			version, dirty, err := mr.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func importCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture.json>",
		Short: "Load a JSON fixture into the configured sqlite or postgres store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.fixture != "" {
				return fmt.Errorf("--fixture cannot be combined with import")
			}
			fx, err := repository.LoadFixture(args[0])
			if err != nil {
				return err
			}

			a, err := opts.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			importer, ok := a.Records.(app.Importer)
			if !ok {
				return fmt.Errorf("datastore driver %q does not accept imports", a.Config.DataStore.Driver)
			}
			if err := importer.Import(cmd.Context(), fx); err != nil {
				return err
			}
			a.Logger.WithFields(logrus.Fields{
				"patients":    len(fx.Patients),
				"visits":      len(fx.Visits),
				"visit_drugs": len(fx.VisitDrugs),
			}).Info("Fixture imported")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d patients, %d visits, %d visit drugs\n",
				len(fx.Patients), len(fx.Visits), len(fx.VisitDrugs))
			return nil
		},
	}
}

func feedbackCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Export or import clinician feedback",
	}

	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write all feedback as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.OpenFeedback()
			if err != nil {
				return err
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return store.ExportJSON(cmd.Context(), w)
		},
	}
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	cmd.AddCommand(exportCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "import <export.json>",
		Short: "Load a feedback export, skipping recommendations already recorded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening export file: %w", err)
			}
			defer f.Close()

			a, err := opts.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.OpenFeedback()
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported=%d skipped=%d\n", imported, skipped)
			return nil
		},
	})

	return cmd
}

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop MCP client",
	}

	var regOpts setup.Options
	registerCmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add the MCP server to Claude Desktop's configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Register(regOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered in %s; restart the client to load it\n", path)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&regOpts.ConfigPath, "client-config", "", "client config file (platform default when empty)")
	registerCmd.Flags().StringVarP(&regOpts.BinaryPath, "binary", "b", "", "path to the mcp-server binary")
	registerCmd.Flags().StringVarP(&regOpts.DataDir, "data-dir", "d", "", "data directory passed to the server")
	registerCmd.Flags().StringVar(&regOpts.FixturePath, "records", "", "JSON fixture passed to the server")
	cmd.AddCommand(registerCmd)

	var statusPath string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the MCP server is registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := setup.GetStatus(statusPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
	statusCmd.Flags().StringVar(&statusPath, "client-config", "", "client config file (platform default when empty)")
	cmd.AddCommand(statusCmd)

	return cmd
}
