// Package uisp implements the telemetry source client for UISP-compatible
// NMS endpoints.
package uisp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// Client fetches the device list of one UISP source.
type Client struct {
	id      string
	name    string
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a source client. The base URL is normalized the way
// the dashboard does: scheme defaulted to https, trailing slash trimmed.
func NewClient(id, name, baseURL, token string) *Client {
	url := strings.TrimSpace(baseURL)
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	if name == "" {
		name = id
	}
	return &Client{
		id:      id,
		name:    name,
		baseURL: strings.TrimRight(url, "/"),
		token:   token,
		http:    &http.Client{},
	}
}

func (c *Client) ID() string   { return c.id }
func (c *Client) Name() string { return c.name }

// deviceRow mirrors the subset of the UISP device record the wall uses.
type deviceRow struct {
	Identification struct {
		ID           string `json:"id"`
		MAC          string `json:"mac"`
		Name         string `json:"name"`
		Hostname     string `json:"hostname"`
		Role         string `json:"role"`
		SerialNumber string `json:"serialNumber"`
		Vendor       string `json:"vendor"`
		Model        string `json:"model"`
		SiteName     string `json:"siteName"`
		Site         struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"site"`
	} `json:"identification"`
	Overview struct {
		Status      string   `json:"status"`
		CPU         *float64 `json:"cpu"`
		RAM         *float64 `json:"ram"`
		Temperature *float64 `json:"temperature"`
		Uptime      *float64 `json:"uptime"`
	} `json:"overview"`
	IPAddress string   `json:"ipAddress"`
	Latency   *float64 `json:"latency"`
}

// FetchDevices performs one bounded fetch of the source's device list.
// The HTTP status is returned even when the body is unusable so the
// aggregator can fold it into the aggregate code.
func (c *Client) FetchDevices(ctx context.Context) ([]domain.DeviceSample, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nms/api/v2.1/devices", nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Auth-Token", c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return nil, 0, rtt, fmt.Errorf("fetch %s: %w", c.id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	rtt = time.Since(start)
	if err != nil {
		return nil, resp.StatusCode, rtt, fmt.Errorf("read %s: %w", c.id, err)
	}

	var rows []deviceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		// Malformed payloads are treated like transport failures.
		return nil, resp.StatusCode, rtt, fmt.Errorf("decode %s: %w", c.id, err)
	}

	samples := make([]domain.DeviceSample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, c.toSample(row))
	}
	return samples, resp.StatusCode, rtt, nil
}

func (c *Client) toSample(row deviceRow) domain.DeviceSample {
	id := row.Identification
	key := domain.IdentityKey(id.MAC, id.ID, id.Name)
	name := id.Name
	if name == "" {
		name = key
	}
	site := id.Site.Name
	if site == "" {
		site = id.SiteName
	}
	return domain.DeviceSample{
		Key:         key,
		Name:        name,
		Role:        domain.NormalizeRole(id.Role),
		Online:      domain.OnlineStatus(row.Overview.Status),
		Hostname:    id.Hostname,
		Site:        site,
		SiteID:      id.Site.ID,
		MAC:         id.MAC,
		Serial:      id.SerialNumber,
		Vendor:      id.Vendor,
		Model:       id.Model,
		IP:          strings.SplitN(row.IPAddress, "/", 2)[0],
		CPU:         row.Overview.CPU,
		RAM:         row.Overview.RAM,
		Temperature: row.Overview.Temperature,
		UptimeSec:   row.Overview.Uptime,
		LatencyMs:   row.Latency,
		SourceID:    c.id,
		SourceName:  c.name,
	}
}
