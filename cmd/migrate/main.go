package main

import (
	"context"
	"log/slog"
	"os"

	"wishforge/internal/config"
	"wishforge/internal/repository"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.New()
	if err != nil {
		slog.Error("config failed", "error", err)
		os.Exit(1)
	}

	slog.Info("running migrations", "command", command)

	if err := repository.RunMigrations(context.Background(), cfg.DSN(), command); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migrations applied")
}
