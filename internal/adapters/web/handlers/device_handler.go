package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
	"github.com/asparks1987/NOCWALL-CE/internal/core/ports"
)

// MonitorService is the slice of the monitor the handlers need.
type MonitorService interface {
	Snapshot() (domain.DeviceList, bool)
	Ack(key, durationToken string) error
	ClearAck(key string) error
	ClearAllAcks() error
	Simulate(key string) error
	ClearSimulate(key string) error
}

// DeviceHandler serves the aggregated device list and the per-device
// operations.
type DeviceHandler struct {
	Service MonitorService
	History ports.HistoryStore
}

// NewDeviceHandler creates the handler.
func NewDeviceHandler(service MonitorService, history ports.HistoryStore) *DeviceHandler {
	return &DeviceHandler{Service: service, History: history}
}

// HandleList returns the latest aggregated device list. When no source
// is configured the response is a distinguishable 503, never an
// empty-but-ok list.
func (h *DeviceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, unconfigured := h.Service.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")

	if unconfigured {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"devices":     []domain.DeviceView{},
			"http":        http.StatusServiceUnavailable,
			"api_latency": 0,
			"error":       "sources_not_configured",
			"message":     "Add one or more telemetry sources to the sources file.",
		})
		return
	}
	if list.Devices == nil {
		list.Devices = []domain.DeviceView{}
	}
	json.NewEncoder(w).Encode(list)
}

// HandleAck acknowledges a device for the requested duration token.
func (h *DeviceHandler) HandleAck(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["id"]
	dur := r.URL.Query().Get("dur")
	if err := h.Service.Ack(key, dur); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

// HandleClearAck removes a device's acknowledgement.
func (h *DeviceHandler) HandleClearAck(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearAck(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

// HandleClearAllAcks removes every acknowledgement.
func (h *DeviceHandler) HandleClearAllAcks(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearAllAcks(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

// HandleSimulate forces a simulated fault on a device.
func (h *DeviceHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Simulate(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

// HandleClearSimulate lifts a simulated fault.
func (h *DeviceHandler) HandleClearSimulate(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearSimulate(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

// HandleHistory returns the metric history for one device, default the
// trailing 24 hours.
func (h *DeviceHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 24*30 {
			hours = n
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	points, err := h.History.DeviceHistory(mux.Vars(r)["id"], since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if points == nil {
		points = []domain.MetricPoint{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"device_id": mux.Vars(r)["id"],
		"hours":     hours,
		"points":    points,
	})
}
