// Package push delivers notification intents to a Gotify-compatible
// push sink. Delivery is best-effort: failures are logged and reported
// to the caller, never escalated.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// DispatchTimeout bounds one delivery attempt.
const DispatchTimeout = 5 * time.Second

// GotifyPusher posts intents to a Gotify /message endpoint.
type GotifyPusher struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewGotifyPusher builds a pusher. An empty token makes Push a no-op.
func NewGotifyPusher(baseURL, token string) *GotifyPusher {
	return &GotifyPusher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DispatchTimeout},
	}
}

type gotifyMessage struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Push attempts one delivery. It returns true only when the sink
// answered 2xx; callers use that to decide whether the suppression
// window starts. A missing token is a silent no-op.
func (p *GotifyPusher) Push(ctx context.Context, intent domain.NotificationIntent) bool {
	if p.token == "" {
		return false
	}

	payload, err := json.Marshal(gotifyMessage{
		Title:    intent.Title,
		Message:  intent.Message,
		Priority: intent.Priority,
	})
	if err != nil {
		return false
	}

	requestID := uuid.New().String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/message", bytes.NewReader(payload))
	if err != nil {
		slog.Error("push request build failed", "request_id", requestID, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gotify-Key", p.token)

	resp, err := p.http.Do(req)
	if err != nil {
		slog.Warn("push delivery failed",
			"request_id", requestID,
			"category", intent.Category,
			"device", intent.DeviceKey,
			"error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("push sink rejected message",
			"request_id", requestID,
			"category", intent.Category,
			"device", intent.DeviceKey,
			"status", resp.StatusCode)
		return false
	}
	return true
}
