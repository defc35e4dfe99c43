package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/SeitzDaniel/auckland-transport/internal/app"
	"github.com/SeitzDaniel/auckland-transport/internal/config"
	"github.com/SeitzDaniel/auckland-transport/internal/logging"
)

var version = "dev"
var appName = "atbridge"

func main() {
	// Best effort; a missing .env file is the normal case outside dev.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	stopsCfg, err := config.LoadStops(cfg.StopsPath, cfg.APIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stops config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, stopsCfg, version); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
