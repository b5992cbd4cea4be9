package siren

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

type countingPlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *countingPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return nil
}

func (p *countingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

func offlineGateway(id string, since int64) domain.DeviceView {
	return domain.DeviceView{ID: id, Name: id, Gateway: true, Online: false, OfflineSince: &since}
}

func TestEligible(t *testing.T) {
	all := Toggles{Gateways: true, APs: true, Routers: true}
	now := int64(10000)
	ack := now + 600
	expired := now - 1
	oldSince := now - 1000
	freshSince := now - 100
	junkSince := int64(0)

	tests := []struct {
		name  string
		view  domain.DeviceView
		t     Toggles
		muted bool
		want  bool
	}{
		{"offline gateway", offlineGateway("gw", oldSince), all, false, true},
		{"online gateway", domain.DeviceView{Gateway: true, Online: true}, all, false, false},
		{"gateway category muted", offlineGateway("gw", oldSince), Toggles{APs: true, Routers: true}, false, false},
		{"device muted", offlineGateway("gw", oldSince), all, true, false},
		{"acked gateway", domain.DeviceView{Gateway: true, Online: false, OfflineSince: &oldSince, AckUntil: &ack}, all, false, false},
		{"expired ack", domain.DeviceView{Gateway: true, Online: false, OfflineSince: &oldSince, AckUntil: &expired}, all, false, true},
		{"router", domain.DeviceView{Router: true, Online: false}, all, false, true},
		{"switch under routers toggle", domain.DeviceView{Switch: true, Online: false}, Toggles{Gateways: true, APs: true}, false, false},
		{"ap within grace", domain.DeviceView{AP: true, Online: false, OfflineSince: &freshSince}, all, false, false},
		{"ap past grace", domain.DeviceView{AP: true, Online: false, OfflineSince: &oldSince}, all, false, true},
		{"ap with junk timestamp", domain.DeviceView{AP: true, Online: false, OfflineSince: &junkSince}, all, false, false},
		{"ap without timestamp", domain.DeviceView{AP: true, Online: false}, all, false, false},
		{"station", domain.DeviceView{Station: true, Online: false}, all, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Eligible(tc.view, tc.t, tc.muted, now))
		})
	}
}

type fakeTimers struct {
	mu    sync.Mutex
	armed []struct {
		delay time.Duration
		fn    func()
	}
}

func (f *fakeTimers) after(d time.Duration, fn func()) *time.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = append(f.armed, struct {
		delay time.Duration
		fn    func()
	}{d, fn})
	return time.AfterFunc(10*time.Hour, func() {})
}

func (f *fakeTimers) last() (time.Duration, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := f.armed[len(f.armed)-1]
	return entry.delay, entry.fn
}

func (f *fakeTimers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.armed)
}

func newTestScheduler(p Player) (*Scheduler, *fakeTimers) {
	s := NewScheduler(p)
	timers := &fakeTimers{}
	s.after = timers.after
	return s, timers
}

func TestSchedulerEscalationLadder(t *testing.T) {
	player := &countingPlayer{}
	s, timers := newTestScheduler(player)
	s.Unlock()

	s.Evaluate([]domain.DeviceView{offlineGateway("gw", 1)})
	require.Equal(t, 1, timers.count(), "eligibility arms the timer")
	delay, fire := timers.last()
	assert.Equal(t, FirstDelay, delay)

	// Still eligible at fire time: audio plays, next delay escalates.
	fire()
	assert.Equal(t, 1, player.count())
	require.Equal(t, 2, timers.count())
	delay, fire = timers.last()
	assert.Equal(t, RepeatDelay, delay)

	fire()
	assert.Equal(t, 2, player.count())
}

func TestSchedulerResetsWhenEligibilityClears(t *testing.T) {
	player := &countingPlayer{}
	s, timers := newTestScheduler(player)
	s.Unlock()

	s.Evaluate([]domain.DeviceView{offlineGateway("gw", 1)})
	_, fire := timers.last()
	fire()
	assert.Equal(t, 1, player.count())

	// Device recovers: pending alert cancelled, ladder resets.
	s.Evaluate([]domain.DeviceView{{ID: "gw", Gateway: true, Online: true}})

	s.Evaluate([]domain.DeviceView{offlineGateway("gw", 1)})
	delay, _ := timers.last()
	assert.Equal(t, FirstDelay, delay, "new episode starts at the first delay again")
}

func TestSchedulerRechecksAtFireTime(t *testing.T) {
	player := &countingPlayer{}
	s, timers := newTestScheduler(player)
	s.Unlock()

	s.Evaluate([]domain.DeviceView{offlineGateway("gw", 1)})
	_, fire := timers.last()

	// Views changed but a stale fire still lands: it must re-check.
	s.views = []domain.DeviceView{{ID: "gw", Gateway: true, Online: true}}
	fire()
	assert.Zero(t, player.count())
	assert.Equal(t, FirstDelay, s.delay)
}

func TestSchedulerLockedAudioSurfacesHint(t *testing.T) {
	player := &countingPlayer{}
	s, timers := newTestScheduler(player)

	s.Evaluate([]domain.DeviceView{offlineGateway("gw", 1)})
	_, fire := timers.last()
	fire()

	assert.Zero(t, player.count(), "locked audio never plays")
	assert.True(t, s.NeedsUnlock())

	s.Unlock()
	assert.False(t, s.NeedsUnlock())

	_, fire = timers.last()
	fire()
	assert.Equal(t, 1, player.count())
}

func TestToggleDeviceAffectsEligibility(t *testing.T) {
	player := &countingPlayer{}
	s, timers := newTestScheduler(player)
	s.Unlock()

	s.Evaluate([]domain.DeviceView{offlineGateway("gw", 1)})
	require.Equal(t, 1, timers.count())

	assert.True(t, s.ToggleDevice("gw"))
	assert.Nil(t, s.timer, "muting the only eligible device cancels the alert")

	assert.False(t, s.ToggleDevice("gw"))
	assert.NotNil(t, s.timer)
}
