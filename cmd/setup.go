package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/xmarc/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig creates a config.toml from the bundled template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Created %s\n\n", configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Fill in your Spotify client_id and client_secret\n")
	r.writePlain("2. Run 'xmarc auth login' to authorize\n")
	r.writePlain("3. Run 'xmarc run' to start archiving\n")

	return nil
}

// SetupDatabase initializes the sqlite state database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.State.DatabasePath
	if path == "" {
		return fmt.Errorf("%w: state database_path is not set", shared.ErrInvalidConfig)
	}

	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	return nil
}
