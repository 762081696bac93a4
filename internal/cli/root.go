package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projtrack/tracker/internal/app"
	"github.com/projtrack/tracker/internal/config"
	"github.com/projtrack/tracker/internal/database"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/application.yaml"

type options struct {
	configPath string
}

// NewRootCmd builds the tracker command tree. Without a subcommand it serves
// HTTP.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Project activities and challenges tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newUsersCmd(opts))
	return cmd
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) load() (config.Application, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Application{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// dependencies opens a migrated database and wires the same services the
// server uses. The returned pool must be closed by the caller.
func (o *options) dependencies() (*app.Dependencies, *pgxpool.Pool, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return app.BuildDependencies(db, cfg), db, nil
}
