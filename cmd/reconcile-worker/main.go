package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/contractor-assistant/internal/app/reconciler"
	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.Setup(cfg.Env, os.Stdout)

	logger.Info("starting reconcile worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := reconciler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize reconcile worker", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("reconcile worker stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("reconcile worker stopped gracefully")
}
