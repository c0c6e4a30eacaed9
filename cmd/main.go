package main

import (
	"context"
	"os"

	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}
	if err := shared.ApplyLogLevel(logger, config.Log.Level); err != nil {
		logger.Warn("invalid log level", "level", config.Log.Level, "error", err)
	}

	var identityClient *identity.Client
	if client, err := identity.NewClient(config.Identity, identity.Options{}); err == nil {
		identityClient = client
	} else {
		logger.Debug("identity service not configured", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Identity:   identityClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "todox",
		Usage:    "Local-first todos with a localized, session-gated web app",
		Version:  "0.1.0",
		Commands: runner.register(),
		After: func(ctx context.Context, cmd *cli.Command) error {
			return runner.Close()
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
