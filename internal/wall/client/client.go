// Package client talks to the nocwall server HTTP API on behalf of the
// wall terminal.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

const requestTimeout = 10 * time.Second

// Client wraps the server's device and operation endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given server base URL, e.g.
// "http://127.0.0.1:8080".
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// FetchDevices retrieves the aggregated device list. A non-2xx response
// or an unparsable body is an error; the caller treats both the same.
func (c *Client) FetchDevices(ctx context.Context) (domain.DeviceList, error) {
	var list domain.DeviceList

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/devices", nil)
	if err != nil {
		return list, fmt.Errorf("building device request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return list, fmt.Errorf("fetching devices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return list, fmt.Errorf("device fetch returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return list, fmt.Errorf("decoding device list: %w", err)
	}
	return list, nil
}

// Ack acknowledges a device for the given duration token (30m, 1h, 6h,
// 8h, 12h).
func (c *Client) Ack(ctx context.Context, deviceID, durToken string) error {
	q := url.Values{}
	if durToken != "" {
		q.Set("dur", durToken)
	}
	return c.post(ctx, fmt.Sprintf("/api/devices/%s/ack", url.PathEscape(deviceID)), q)
}

// ClearAck removes a device acknowledgement.
func (c *Client) ClearAck(ctx context.Context, deviceID string) error {
	return c.post(ctx, fmt.Sprintf("/api/devices/%s/clear", url.PathEscape(deviceID)), nil)
}

// ClearAllAcks removes every acknowledgement.
func (c *Client) ClearAllAcks(ctx context.Context) error {
	return c.post(ctx, "/api/acks/clear", nil)
}

// Simulate forces a simulated fault on a device.
func (c *Client) Simulate(ctx context.Context, deviceID string) error {
	return c.post(ctx, fmt.Sprintf("/api/devices/%s/simulate", url.PathEscape(deviceID)), nil)
}

// ClearSimulate clears a simulated fault.
func (c *Client) ClearSimulate(ctx context.Context, deviceID string) error {
	return c.post(ctx, fmt.Sprintf("/api/devices/%s/clearsim", url.PathEscape(deviceID)), nil)
}

func (c *Client) post(ctx context.Context, path string, q url.Values) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}
