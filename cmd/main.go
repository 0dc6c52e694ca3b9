package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	api := services.NewAPIService(config.API.BaseURL, services.NewAuthenticatedClient(ctx, config.API.Token))
	gallery := services.NewGalleryService(api)

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Store:    gallery,
		Producer: services.NewGeneratorService(api),
		Backend:  gallery,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:    "genx",
		Usage:   "Track generation jobs and browse the generated gallery",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	err := app.Run(ctx, os.Args)
	runner.Close()
	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
