package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/genx/internal/repositories"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file when missing, initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	if err := r.Close(); err != nil {
		r.logger.Warn("failed to close previous database", "error", err)
	}
	r.config = config

	db, err := r.database()
	if err != nil {
		return err
	}

	saved, err := repositories.NewPromptRepository(db).List(map[string]any{
		"namespace": shared.Namespace("prompts", config.API.UserID),
	})
	if err != nil {
		return fmt.Errorf("failed to verify schema: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d saved prompts)\n", config.Database.Path, len(saved))
	return nil
}
