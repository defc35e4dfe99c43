package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/SeitzDaniel/auckland-transport/internal/config"
)

// New builds the process logger. Dev environments get colorized console
// output, everything else gets JSON lines for log collectors. Source
// locations are attached only when the level lets debug records through.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	withSource := cfg.LogLevel <= slog.LevelDebug

	if cfg.AppEnv == "dev" {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  withSource,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName, "version", version)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: withSource,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
