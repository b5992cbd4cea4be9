package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asparks1987/NOCWALL-CE/internal/core/services/aggregate"
)

var errHistoryDisabled = errors.New("metric history is not enabled")

// SourceStatusProvider exposes the aggregator's per-source last-poll
// records.
type SourceStatusProvider interface {
	Statuses() []aggregate.SourceStatus
}

// SourceHandler serves source health for the status panel.
type SourceHandler struct {
	Provider SourceStatusProvider
}

// NewSourceHandler creates the handler.
func NewSourceHandler(provider SourceStatusProvider) *SourceHandler {
	return &SourceHandler{Provider: provider}
}

// HandleStatus returns the per-source status rows.
func (h *SourceHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	rows := h.Provider.Statuses()
	if rows == nil {
		rows = []aggregate.SourceStatus{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"sources": rows})
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"ok": 1})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
