package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires all HTTP endpoints.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/devices", s.DeviceHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/ack", s.DeviceHandler.HandleAck).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/clear", s.DeviceHandler.HandleClearAck).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/simulate", s.DeviceHandler.HandleSimulate).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/clearsim", s.DeviceHandler.HandleClearSimulate).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/history", s.DeviceHandler.HandleHistory).Methods(http.MethodGet)
	api.HandleFunc("/acks/clear", s.DeviceHandler.HandleClearAllAcks).Methods(http.MethodPost)
	api.HandleFunc("/sources/status", s.SourceHandler.HandleStatus).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
