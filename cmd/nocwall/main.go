package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/asparks1987/NOCWALL-CE/internal/app"
	"github.com/asparks1987/NOCWALL-CE/internal/config"
	"github.com/asparks1987/NOCWALL-CE/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	if !cfg.Demo {
		sources, err := config.LoadSources(cfg.SourcesPath)
		if err != nil {
			slog.Error("Failed to load sources file", "path", cfg.SourcesPath, "error", err)
			os.Exit(1)
		}
		cfg.Sources = sources
	}

	shutdownTracer, err := telemetry.InitTracer("nocwall-server")
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("NOCWALL server starting...", "addr", cfg.Addr, "sources", len(cfg.Sources), "demo", cfg.Demo)

	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", "error", err)
		cancel()
	}
}
