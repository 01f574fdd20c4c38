// Package cmd holds the fieldctl operator commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/common/database"
)

var configPath string

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldctl",
		Short: "Field sales operations tool",
		Long: `fieldctl runs the maintenance tasks around the field sales workers:
schema migrations, the worker registry, client reindexing and offline reports.
It also exposes the geofence and visit timer rules for support checks.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./configs/config.yaml)")

	root.AddCommand(
		newMigrateCmd(),
		newRegistryCmd(),
		newGeoCmd(),
		newVisitCmd(),
		newReportCmd(),
		newClientsCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func openPostgres(ctx context.Context, cfg *config.Config) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pg, nil
}
