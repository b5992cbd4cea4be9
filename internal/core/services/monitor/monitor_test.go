package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
	"github.com/asparks1987/NOCWALL-CE/internal/core/services/aggregate"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]*domain.DeviceState
	saves  int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*domain.DeviceState)}
}

func (s *memStore) LoadAll() (map[string]*domain.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*domain.DeviceState, len(s.states))
	for k, st := range s.states {
		copied := *st
		out[k] = &copied
	}
	return out, nil
}

func (s *memStore) SaveBatch(states []*domain.DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	for _, st := range states {
		copied := *st
		s.states[st.Key] = &copied
	}
	return nil
}

func (s *memStore) PruneStale(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, st := range s.states {
		if st.ObservedAt > 0 && st.ObservedAt < cutoff.Unix() {
			delete(s.states, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) get(key string) *domain.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok {
		copied := *st
		return &copied
	}
	return nil
}

type fakeAgg struct {
	mu  sync.Mutex
	res aggregate.Result
	err error
}

func (a *fakeAgg) Fetch(context.Context) (aggregate.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.res, a.err
}

func (a *fakeAgg) set(res aggregate.Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.res, a.err = res, err
}

type recordingPusher struct {
	mu      sync.Mutex
	ok      bool
	intents []domain.NotificationIntent
}

func (p *recordingPusher) Push(_ context.Context, intent domain.NotificationIntent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, intent)
	return p.ok
}

func (p *recordingPusher) sent() []domain.NotificationIntent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.NotificationIntent(nil), p.intents...)
}

func gateway(key string, online bool) domain.DeviceSample {
	return domain.DeviceSample{Key: key, Name: key, Role: domain.RoleGateway, Online: online}
}

func testMonitor(t *testing.T, agg Aggregator, pusher *recordingPusher, now *time.Time) (*Monitor, *memStore) {
	t.Helper()
	store := newMemStore()
	m, err := New(agg, store, pusher, time.Second, WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	return m, store
}

func TestCycleBuildsSnapshot(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{
		Samples: []domain.DeviceSample{
			gateway("gw-1", true),
			{Key: "cpe-1", Name: "cpe-1", Role: domain.RoleStation, Online: true},
		},
		Status:    200,
		LatencyMs: 12,
	}}
	m, store := testMonitor(t, agg, &recordingPusher{ok: true}, &now)

	m.Cycle(context.Background())

	list, unconfigured := m.Snapshot()
	assert.False(t, unconfigured)
	assert.Equal(t, 200, list.HTTPStatus)
	assert.Equal(t, int64(12), list.APILatency)
	assert.Equal(t, int64(10000), list.LastUpdated)
	require.Len(t, list.Devices, 1, "stations are discarded before state mutation")
	assert.Equal(t, "gw-1", list.Devices[0].ID)
	assert.True(t, list.Devices[0].Online)
	assert.True(t, list.Devices[0].Gateway)

	require.NotNil(t, store.get("gw-1"))
	assert.Nil(t, store.get("cpe-1"))
}

func TestCycleFailureYields503(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{err: aggregate.ErrNotConfigured}
	m, _ := testMonitor(t, agg, &recordingPusher{}, &now)

	m.Cycle(context.Background())

	list, unconfigured := m.Snapshot()
	assert.True(t, unconfigured)
	assert.Equal(t, 503, list.HTTPStatus)
	assert.Empty(t, list.Devices)

	// A working fetch clears the condition.
	agg.set(aggregate.Result{Samples: []domain.DeviceSample{gateway("gw-1", true)}, Status: 200}, nil)
	m.Cycle(context.Background())
	_, unconfigured = m.Snapshot()
	assert.False(t, unconfigured)
}

func TestOfflineNotificationStampedAfterDispatch(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{Samples: []domain.DeviceSample{gateway("gw-1", false)}, Status: 200}}
	pusher := &recordingPusher{ok: true}
	m, store := testMonitor(t, agg, pusher, &now)

	m.Cycle(context.Background())
	assert.Empty(t, pusher.sent(), "below the offline threshold")

	now = now.Add(31 * time.Second)
	m.Cycle(context.Background())

	require.Eventually(t, func() bool {
		st := store.get("gw-1")
		return st != nil && st.LastOfflineNotifyAt != nil
	}, 2*time.Second, 10*time.Millisecond, "suppression marker stamped after successful dispatch")

	sent := pusher.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NotifyOffline, sent[0].Category)
}

func TestFailedDispatchLeavesMarkerUnstamped(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{Samples: []domain.DeviceSample{gateway("gw-1", false)}, Status: 200}}
	pusher := &recordingPusher{ok: false}
	m, store := testMonitor(t, agg, pusher, &now)

	m.Cycle(context.Background())
	now = now.Add(31 * time.Second)
	m.Cycle(context.Background())

	require.Eventually(t, func() bool {
		return len(pusher.sent()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	st := store.get("gw-1")
	require.NotNil(t, st)
	assert.Nil(t, st.LastOfflineNotifyAt, "failed delivery retries next cycle")
}

func TestAckSuppressesDispatch(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{Samples: []domain.DeviceSample{gateway("gw-1", false)}, Status: 200}}
	pusher := &recordingPusher{ok: true}
	m, store := testMonitor(t, agg, pusher, &now)

	require.NoError(t, m.Ack("gw-1", "1h"))
	st := store.get("gw-1")
	require.NotNil(t, st)
	require.NotNil(t, st.AckUntil)
	assert.Equal(t, now.Unix()+3600, *st.AckUntil)

	m.Cycle(context.Background())
	now = now.Add(31 * time.Second)
	m.Cycle(context.Background())

	assert.Empty(t, pusher.sent())
}

func TestAckUnknownTokenFallsBack(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{Status: 200}}
	m, store := testMonitor(t, agg, &recordingPusher{}, &now)

	require.NoError(t, m.Ack("gw-1", "2w"))
	st := store.get("gw-1")
	require.NotNil(t, st)
	assert.Equal(t, now.Unix()+domain.DefaultAckSeconds, *st.AckUntil)
}

func TestClearAllAcks(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{Status: 200}}
	m, store := testMonitor(t, agg, &recordingPusher{}, &now)

	require.NoError(t, m.Ack("gw-1", "1h"))
	require.NoError(t, m.Ack("gw-2", "6h"))
	require.NoError(t, m.ClearAllAcks())

	assert.Nil(t, store.get("gw-1").AckUntil)
	assert.Nil(t, store.get("gw-2").AckUntil)
}

func TestSimulateAndClear(t *testing.T) {
	now := time.Unix(10000, 0)
	agg := &fakeAgg{res: aggregate.Result{Samples: []domain.DeviceSample{gateway("gw-1", true)}, Status: 200}}
	m, store := testMonitor(t, agg, &recordingPusher{ok: true}, &now)

	m.Cycle(context.Background())

	require.NoError(t, m.Simulate("gw-1"))
	st := store.get("gw-1")
	assert.True(t, st.Simulate)
	require.NotNil(t, st.OfflineSince)

	// The cached view flips immediately, before the next poll.
	list, _ := m.Snapshot()
	require.Len(t, list.Devices, 1)
	assert.False(t, list.Devices[0].Online)
	assert.True(t, list.Devices[0].Simulate)

	// Next cycle treats it like a real outage.
	now = now.Add(31 * time.Second)
	m.Cycle(context.Background())
	list, _ = m.Snapshot()
	assert.False(t, list.Devices[0].Online)

	require.NoError(t, m.ClearSimulate("gw-1"))
	st = store.get("gw-1")
	assert.False(t, st.Simulate)
	assert.Nil(t, st.OfflineSince)
	assert.Nil(t, st.LastOfflineNotifyAt)

	list, _ = m.Snapshot()
	assert.True(t, list.Devices[0].Online)
}
