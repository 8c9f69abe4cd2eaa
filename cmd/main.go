package main

import (
	"context"
	"errors"
	"os"

	"github.com/tasteos/cookmode/internal/cache"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	var store *cache.Store
	if db, err := shared.NewDatabase(config.Cache.Path); err == nil {
		defer db.Close()
		shared.ConfigureDatabase(db, config.Cache.MaxOpenConns, config.Cache.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			logger.Warn("snapshot cache migrations failed", "error", err)
		} else {
			store = cache.NewStore(db, logger)
		}
	} else {
		logger.Warn("snapshot cache unavailable", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Store:      store,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "cookmode",
		Usage:    "TasteOS cook-mode terminal client",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
