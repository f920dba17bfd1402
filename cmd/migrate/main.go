package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/maxviazov/range-feed-service/internal/config"
	"github.com/maxviazov/range-feed-service/internal/logger"
	"github.com/maxviazov/range-feed-service/internal/repository"
	"github.com/maxviazov/range-feed-service/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the events schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config")

	root.AddCommand(
		newMigrationCommand("up", "Apply all pending migrations", &configPath, migrations.Up),
		newMigrationCommand("down", "Roll back the latest migration", &configPath, migrations.Down),
		newMigrationCommand("status", "Print the state of every migration", &configPath, migrations.Status),
	)
	return root
}

func newMigrationCommand(use, short string, configPath *string, run func(*sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config loading failed: %w", err)
			}
			appLogger, err := logger.New(&cfg.Logger)
			if err != nil {
				return fmt.Errorf("logger initialization failed: %w", err)
			}
			l := appLogger.With().Str("module", "migrate").Str("command", use).Logger()

			db, err := sql.Open("pgx", repository.DSN(cfg.Postgres))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := run(db); err != nil {
				l.Error().Err(err).Msg("migration failed")
				return err
			}
			l.Info().Msg("migrations done")
			return nil
		},
	}
}
