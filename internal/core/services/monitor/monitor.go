// Package monitor drives the server-side poll cycle: aggregate the
// sources, reconcile every device against its persisted state, persist
// the results, dispatch notifications and publish the views.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
	"github.com/asparks1987/NOCWALL-CE/internal/core/ports"
	"github.com/asparks1987/NOCWALL-CE/internal/core/services/aggregate"
	"github.com/asparks1987/NOCWALL-CE/internal/core/services/engine"
	"github.com/asparks1987/NOCWALL-CE/internal/telemetry"
)

const (
	metricsInterval = 60 * time.Second
	gcInterval      = time.Hour
)

// Aggregator is the slice of the aggregate service the monitor needs.
type Aggregator interface {
	Fetch(ctx context.Context) (aggregate.Result, error)
}

// Monitor owns the device state table. It is the single writer; all
// mutation funnels through its mutex.
type Monitor struct {
	aggregator  Aggregator
	store       ports.StateStore
	history     ports.HistoryStore
	pusher      ports.Pusher
	broadcaster ports.DeviceBroadcaster
	interval    time.Duration
	now         func() time.Time

	mu            sync.Mutex
	states        map[string]*domain.DeviceState
	snapshot      domain.DeviceList
	unconfigured  bool
	lastMetricsAt time.Time
	lastGCAt      time.Time
}

// Option configures optional monitor collaborators.
type Option func(*Monitor)

// WithHistory enables metric history recording.
func WithHistory(h ports.HistoryStore) Option {
	return func(m *Monitor) { m.history = h }
}

// WithBroadcaster publishes each cycle's views to wall clients.
func WithBroadcaster(b ports.DeviceBroadcaster) Option {
	return func(m *Monitor) { m.broadcaster = b }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New creates a monitor and loads the persisted state table.
func New(agg Aggregator, store ports.StateStore, pusher ports.Pusher, interval time.Duration, opts ...Option) (*Monitor, error) {
	states, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	m := &Monitor{
		aggregator: agg,
		store:      store,
		pusher:     pusher,
		interval:   interval,
		now:        time.Now,
		states:     states,
		snapshot:   domain.DeviceList{HTTPStatus: 0},
	}
	for _, opt := range opts {
		opt(m)
	}
	slog.Info("monitor state loaded", "devices", len(states))
	return m, nil
}

// Run executes poll cycles until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cycle(ctx)
		}
	}
}

// Cycle performs one complete poll: fetch, reconcile, persist, dispatch,
// publish. It runs to completion before state is persisted; concurrent
// cycles are not expected.
func (m *Monitor) Cycle(ctx context.Context) {
	telemetry.PollCycles.Inc()
	nowTime := m.now()
	now := nowTime.Unix()

	res, err := m.aggregator.Fetch(ctx)
	if err != nil {
		m.mu.Lock()
		m.unconfigured = err == aggregate.ErrNotConfigured
		m.snapshot = domain.DeviceList{HTTPStatus: 503, LastUpdated: now}
		m.mu.Unlock()
		telemetry.PollErrors.Inc()
		slog.Warn("poll cycle failed", "error", err)
		return
	}

	views, dirty, pending, points := m.reconcile(res, nowTime)

	if err := m.store.SaveBatch(dirty); err != nil {
		slog.Error("state persistence failed", "error", err)
	}
	if m.history != nil && len(points) > 0 {
		if err := m.history.RecordMetrics(points); err != nil {
			slog.Warn("metrics history write failed", "error", err)
		}
	}

	// Dispatch never blocks persistence or the next cycle.
	for _, p := range pending {
		go m.dispatch(p, now)
	}

	list := domain.DeviceList{
		Devices:     views,
		HTTPStatus:  res.Status,
		APILatency:  res.LatencyMs,
		LastUpdated: now,
	}
	m.mu.Lock()
	m.unconfigured = false
	m.snapshot = list
	m.mu.Unlock()

	telemetry.DevicesObserved.Set(float64(len(views)))
	if m.broadcaster != nil {
		m.broadcaster.BroadcastDevices(list)
	}

	m.maybeGC(nowTime)
}

type pendingDispatch struct {
	intent engine.PendingIntent
	key    string
}

// reconcile runs the decision engine over every monitored sample and
// builds the wire views. A single now anchors every comparison within
// the cycle.
func (m *Monitor) reconcile(res aggregate.Result, nowTime time.Time) ([]domain.DeviceView, []*domain.DeviceState, []pendingDispatch, []domain.MetricPoint) {
	now := nowTime.Unix()
	recordMetrics := nowTime.Sub(m.lastMetricsAt) >= metricsInterval

	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]domain.DeviceView, 0, len(res.Samples))
	dirty := make([]*domain.DeviceState, 0, len(res.Samples))
	var pending []pendingDispatch
	var points []domain.MetricPoint

	for _, sample := range res.Samples {
		if !sample.Monitored() {
			continue
		}
		st, ok := m.states[sample.Key]
		if !ok {
			st = &domain.DeviceState{Key: sample.Key}
			m.states[sample.Key] = st
		}

		outcome := engine.Evaluate(sample, st, now)
		dirty = append(dirty, st)
		for _, intent := range outcome.Intents {
			pending = append(pending, pendingDispatch{intent: intent, key: sample.Key})
		}
		views = append(views, buildView(sample, st, outcome))

		if recordMetrics {
			points = append(points, domain.MetricPoint{
				DeviceKey:   sample.Key,
				Name:        sample.Name,
				CPU:         sample.CPU,
				RAM:         sample.RAM,
				Temperature: sample.Temperature,
				LatencyMs:   sample.LatencyMs,
				Online:      outcome.EffectiveOnline,
				RecordedAt:  nowTime,
			})
		}
	}

	if recordMetrics {
		m.lastMetricsAt = nowTime
	}
	return views, dirty, pending, points
}

func buildView(sample domain.DeviceSample, st *domain.DeviceState, outcome engine.Outcome) domain.DeviceView {
	return domain.DeviceView{
		ID:           sample.Key,
		Name:         sample.Name,
		Role:         sample.Role,
		Gateway:      sample.Role.IsGateway(),
		AP:           sample.Role.IsAP(),
		Router:       sample.Role.IsRouter(),
		Switch:       sample.Role.IsSwitch(),
		Station:      sample.Role.IsStation(),
		Backbone:     sample.Role.IsBackbone(),
		SourceID:     sample.SourceID,
		SourceName:   sample.SourceName,
		Site:         sample.Site,
		SiteID:       sample.SiteID,
		Hostname:     sample.Hostname,
		MAC:          sample.MAC,
		Serial:       sample.Serial,
		Vendor:       sample.Vendor,
		Model:        sample.Model,
		Online:       outcome.EffectiveOnline,
		CPU:          sample.CPU,
		RAM:          sample.RAM,
		Temperature:  sample.Temperature,
		LatencyMs:    sample.LatencyMs,
		UptimeSec:    sample.UptimeSec,
		LastSeen:     st.LastSeen,
		OfflineSince: st.OfflineSince,
		FlapsRecent:  outcome.FlapsRecent,
		FlapAlert:    outcome.FlapAlert,
		LatencyAlert: outcome.LatencyAlert,
		Simulate:     st.Simulate,
		AckUntil:     st.AckUntil,
	}
}

// dispatch attempts one delivery and stamps the suppression marker only
// when the sink accepted the message, so the next cycle retries a failed
// attempt.
func (m *Monitor) dispatch(p pendingDispatch, now int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ok := m.pusher.Push(ctx, p.intent.NotificationIntent)
	result := "failed"
	if ok {
		result = "sent"
	}
	telemetry.NotificationsTotal.WithLabelValues(string(p.intent.Category), result).Inc()
	if !ok || p.intent.Marker == engine.MarkerNone {
		return
	}

	m.mu.Lock()
	st, exists := m.states[p.key]
	if exists {
		engine.Stamp(st, p.intent.Marker, now)
	}
	m.mu.Unlock()
	if exists {
		if err := m.store.SaveBatch([]*domain.DeviceState{st}); err != nil {
			slog.Warn("suppression stamp persistence failed", "device", p.key, "error", err)
		}
	}
}

func (m *Monitor) maybeGC(nowTime time.Time) {
	if nowTime.Sub(m.lastGCAt) < gcInterval {
		return
	}
	m.lastGCAt = nowTime
	cutoff := nowTime.Add(-domain.GCMaxAge)

	m.mu.Lock()
	for key, st := range m.states {
		if st.ObservedAt > 0 && st.ObservedAt < cutoff.Unix() {
			delete(m.states, key)
		}
	}
	m.mu.Unlock()

	if n, err := m.store.PruneStale(cutoff); err != nil {
		slog.Warn("state garbage collection failed", "error", err)
	} else if n > 0 {
		slog.Info("pruned stale device states", "count", n)
	}
}

// Snapshot returns the latest aggregated device list and whether the
// poller is running without any configured source.
func (m *Monitor) Snapshot() (domain.DeviceList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.unconfigured
}
