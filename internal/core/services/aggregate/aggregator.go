// Package aggregate merges the device lists of every configured telemetry
// source into one logical fleet per poll cycle.
package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
	"github.com/asparks1987/NOCWALL-CE/internal/core/ports"
	"github.com/asparks1987/NOCWALL-CE/internal/telemetry"
)

// ErrNotConfigured distinguishes "no data because no sources exist" from
// an empty fleet. Callers surface it as an explicit error condition.
var ErrNotConfigured = errors.New("no telemetry sources configured")

// FetchTimeout bounds each per-source round trip.
const FetchTimeout = 10 * time.Second

// Result is the merged outcome of one aggregation pass.
type Result struct {
	Samples []domain.DeviceSample
	// Status is 200 when at least one source answered 2xx, else the
	// maximum observed error code, else 502 when no source produced one.
	Status int
	// LatencyMs is the mean of all per-source round-trip times.
	LatencyMs int64
}

// SourceStatus is the last-poll record kept per source.
type SourceStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OK          bool   `json:"ok"`
	HTTP        int    `json:"http"`
	LatencyMs   int64  `json:"latency_ms"`
	DeviceCount int    `json:"device_count"`
	Error       string `json:"error,omitempty"`
	LastPollAt  string `json:"last_poll_at,omitempty"`
}

// Aggregator fans a fetch out to every source in parallel and merges the
// responses by device identity key.
type Aggregator struct {
	sources []ports.SourceClient
	timeout time.Duration

	mu     sync.RWMutex
	status map[string]SourceStatus
}

// New creates an aggregator over the given sources.
func New(sources []ports.SourceClient) *Aggregator {
	return &Aggregator{
		sources: sources,
		timeout: FetchTimeout,
		status:  make(map[string]SourceStatus),
	}
}

type sourceResult struct {
	source  ports.SourceClient
	samples []domain.DeviceSample
	status  int
	rtt     time.Duration
	err     error
}

// Fetch queries all sources and merges their device lists. A slow or
// failed source never blocks the others; partial failure is tolerated as
// long as one source answers.
func (a *Aggregator) Fetch(ctx context.Context) (Result, error) {
	if len(a.sources) == 0 {
		return Result{}, ErrNotConfigured
	}

	results := make([]sourceResult, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src ports.SourceClient) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			samples, status, rtt, err := src.FetchDevices(fetchCtx)
			results[i] = sourceResult{source: src, samples: samples, status: status, rtt: rtt, err: err}
		}(i, src)
	}
	wg.Wait()

	merged := make(map[string]domain.DeviceSample)
	var order []string
	var latencySum int64
	var codes []int
	okSources := 0

	for _, res := range results {
		latencySum += res.rtt.Milliseconds()
		if res.status > 0 {
			codes = append(codes, res.status)
		}
		a.recordStatus(res)
		if res.err != nil {
			slog.Warn("source fetch failed", "source", res.source.ID(), "error", res.err)
			continue
		}
		if res.status >= 200 && res.status < 300 {
			okSources++
		}
		for _, s := range res.samples {
			existing, seen := merged[s.Key]
			if !seen {
				merged[s.Key] = s
				order = append(order, s.Key)
				continue
			}
			// Prefer a positive signal across redundant sources.
			if s.Online && !existing.Online {
				merged[s.Key] = s
			}
		}
	}

	out := Result{
		Status:    aggregateStatus(okSources, codes),
		LatencyMs: latencySum / int64(len(a.sources)),
	}
	for _, key := range order {
		out.Samples = append(out.Samples, merged[key])
	}
	return out, nil
}

func aggregateStatus(okSources int, codes []int) int {
	if okSources > 0 {
		return 200
	}
	if len(codes) == 0 {
		return 502
	}
	max := codes[0]
	for _, c := range codes[1:] {
		if c > max {
			max = c
		}
	}
	return max
}

func (a *Aggregator) recordStatus(res sourceResult) {
	errMsg := ""
	ok := res.err == nil && res.status >= 200 && res.status < 300
	if !ok {
		if res.err != nil {
			errMsg = res.err.Error()
		} else {
			errMsg = "http_" + strconv.Itoa(res.status)
		}
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	telemetry.SourceFetches.WithLabelValues(res.source.ID(), outcome).Inc()

	a.mu.Lock()
	a.status[res.source.ID()] = SourceStatus{
		ID:          res.source.ID(),
		Name:        res.source.Name(),
		OK:          ok,
		HTTP:        res.status,
		LatencyMs:   res.rtt.Milliseconds(),
		DeviceCount: len(res.samples),
		Error:       errMsg,
		LastPollAt:  time.Now().UTC().Format(time.RFC3339),
	}
	a.mu.Unlock()
}

// Statuses returns the per-source last-poll records, ordered by id.
func (a *Aggregator) Statuses() []SourceStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]SourceStatus, 0, len(a.status))
	for _, s := range a.status {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
