package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/todox/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the local database and applies pending migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))
	dbConfig := config.Database

	r.logger.Info("initializing database", "path", dbConfig.Path)
	db, err := shared.NewDatabase(dbConfig.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, dbConfig.MaxOpenConns, dbConfig.MaxIdleConns)

	before, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	after, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}

	r.logger.Info("database ready", "path", dbConfig.Path, "applied", after-before, "total", after)
	if after == before {
		return r.writePlain("✓ Database ready at %s (schema up to date)\n", dbConfig.Path)
	}
	return r.writePlain("✓ Database ready at %s (%d migrations applied)\n", dbConfig.Path, after-before)
}

// loadOrCreateConfig reads path, writing the example config there first when it is missing.
// Any failure falls back to defaults so the database can still be created.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return shared.DefaultConfig()
		}
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// SetupConfig writes the embedded example config to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set identity.url, identity.anon_key and collection.url (or TODOX_* env vars)\n")
	r.writePlain("2. Run 'todox setup database' then 'todox auth login --email you@example.com'\n")
	return nil
}
