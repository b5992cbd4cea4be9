package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/asparks1987/NOCWALL-CE/internal/adapters/web/handlers"
	"github.com/asparks1987/NOCWALL-CE/internal/adapters/web/websocket"
	"github.com/asparks1987/NOCWALL-CE/internal/core/ports"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr          string
	DeviceHandler *handlers.DeviceHandler
	SourceHandler *handlers.SourceHandler
	WSManager     *websocket.Manager
	srv           *http.Server
}

// NewServer creates the web server over the given collaborators.
func NewServer(addr string, monitor handlers.MonitorService, sources handlers.SourceStatusProvider, history ports.HistoryStore, ws *websocket.Manager) *Server {
	return &Server{
		Addr:          addr,
		DeviceHandler: handlers.NewDeviceHandler(monitor, history),
		SourceHandler: handlers.NewSourceHandler(sources),
		WSManager:     ws,
	}
}

// Run starts the server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	handler := SetupRoutes(s)
	instrumented := otelhttp.NewHandler(handler, "nocwall-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumented,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Web server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}()

	log.Printf("Web server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
