// Package app bootstraps the nocwall server: storage, sources,
// monitor, dispatcher, and the HTTP/WebSocket surface.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asparks1987/NOCWALL-CE/internal/adapters/push"
	"github.com/asparks1987/NOCWALL-CE/internal/adapters/storage"
	"github.com/asparks1987/NOCWALL-CE/internal/adapters/uisp"
	webserver "github.com/asparks1987/NOCWALL-CE/internal/adapters/web/server"
	"github.com/asparks1987/NOCWALL-CE/internal/adapters/web/websocket"
	"github.com/asparks1987/NOCWALL-CE/internal/config"
	"github.com/asparks1987/NOCWALL-CE/internal/core/ports"
	"github.com/asparks1987/NOCWALL-CE/internal/core/services/aggregate"
	"github.com/asparks1987/NOCWALL-CE/internal/core/services/monitor"
	"github.com/asparks1987/NOCWALL-CE/internal/mock"
	"github.com/asparks1987/NOCWALL-CE/internal/telemetry"
)

// Application holds the server's wired components.
type Application struct {
	Config     *config.Config
	Store      *storage.SQLiteStore
	Aggregator *aggregate.Aggregator
	Monitor    *monitor.Monitor
	WebServer  *webserver.Server
	WSManager  *websocket.Manager
}

// New creates an Application and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	store, err := storage.NewSQLiteStore(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	app.Store = store

	app.Aggregator = aggregate.New(app.buildSources())

	pusher := push.NewGotifyPusher(app.Config.GotifyURL, app.Config.GotifyToken)

	app.WSManager = websocket.NewManager()

	mon, err := monitor.New(app.Aggregator, store, pusher, app.Config.PollInterval,
		monitor.WithHistory(store),
		monitor.WithBroadcaster(app.WSManager),
	)
	if err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}
	app.Monitor = mon

	app.WebServer = webserver.NewServer(app.Config.Addr, mon, app.Aggregator, store, app.WSManager)
	return nil
}

func (app *Application) buildSources() []ports.SourceClient {
	if app.Config.Demo {
		slog.Info("demo mode, using synthetic fleet source")
		return []ports.SourceClient{mock.NewSource("demo")}
	}
	sources := make([]ports.SourceClient, 0, len(app.Config.Sources))
	for _, src := range app.Config.Sources {
		sources = append(sources, uisp.NewClient(src.ID, src.Name, src.URL, src.Token))
		slog.Info("configured source", "id", src.ID, "name", src.Name)
	}
	return sources
}

// Run starts the poll loop and the web server, blocking until ctx is
// cancelled or the server fails.
func (app *Application) Run(ctx context.Context) error {
	go app.Monitor.Run(ctx)

	err := app.WebServer.Run(ctx)

	if cerr := app.Store.Close(); cerr != nil {
		slog.Error("closing state store", "error", cerr)
	}
	return err
}
