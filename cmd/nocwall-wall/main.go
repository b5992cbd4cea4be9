package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/asparks1987/NOCWALL-CE/internal/config"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/client"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/override"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/poll"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/siren"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/ui"
)

func main() {
	// The TUI owns stdout; keep logs on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.LoadWall()

	api := client.New(cfg.ServerURL)
	snapshot := poll.NewSnapshot(cfg.SnapshotPath)
	orch := poll.NewOrchestrator(api, snapshot, cfg.PollInterval)

	var player siren.Player = siren.BellPlayer{W: os.Stderr}
	if cfg.SirenCommand != "" {
		player = siren.CommandPlayer{Command: cfg.SirenCommand}
	}
	sched := siren.NewScheduler(player)
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx)

	model := ui.NewModel(api, orch, override.NewSet(), sched)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("Wall terminated", "error", err)
		os.Exit(1)
	}
}
