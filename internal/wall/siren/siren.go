// Package siren decides which offline devices warrant an audible alert
// and drives the escalating repeat timer behind it.
package siren

import (
	"sync"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

const (
	// FirstDelay is how long eligibility must hold before the first
	// alert; RepeatDelay spaces the alerts after that.
	FirstDelay  = 30 * time.Second
	RepeatDelay = 600 * time.Second

	// APGraceSec delays escalation for access points, whose brief
	// wireless drops are routine.
	APGraceSec = 900

	// offline timestamps below this are clock junk and never eligible
	minOfflineTS = 1
)

// Toggles are the independently mutable mutes consulted per device.
type Toggles struct {
	Gateways bool
	APs      bool
	Routers  bool // covers routers and switches
}

// Eligible reports whether a single device should feed the siren at
// now (epoch seconds): category unmuted, device unmuted, offline,
// unacknowledged, and past the AP grace window when applicable.
func Eligible(v domain.DeviceView, t Toggles, deviceMuted bool, now int64) bool {
	if deviceMuted || v.Online {
		return false
	}
	switch {
	case v.Gateway:
		if !t.Gateways {
			return false
		}
	case v.AP:
		if !t.APs {
			return false
		}
	case v.Router, v.Switch:
		if !t.Routers {
			return false
		}
	default:
		return false
	}
	if v.AckUntil != nil && *v.AckUntil > now {
		return false
	}
	if v.AP {
		if v.OfflineSince == nil || *v.OfflineSince < minOfflineTS {
			return false
		}
		if now-*v.OfflineSince < APGraceSec {
			return false
		}
	}
	return true
}

// Player produces the actual alert sound.
type Player interface {
	Play() error
}

// Scheduler owns the escalation timer: first alert after 30s of
// continuous eligibility, then every 600s while it holds; any gap
// resets the ladder.
type Scheduler struct {
	mu      sync.Mutex
	player  Player
	now     func() time.Time
	after   func(time.Duration, func()) *time.Timer
	toggles Toggles
	muted   map[string]bool

	views []domain.DeviceView
	timer *time.Timer
	delay time.Duration

	armed      bool // audio unlocked by a user gesture
	wantUnlock bool // a fire was swallowed because audio is locked
}

func NewScheduler(player Player) *Scheduler {
	return &Scheduler{
		player:  player,
		now:     time.Now,
		after:   time.AfterFunc,
		toggles: Toggles{Gateways: true, APs: true, Routers: true},
		muted:   make(map[string]bool),
		delay:   FirstDelay,
	}
}

// Unlock arms audio playback after the first user gesture.
func (s *Scheduler) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.wantUnlock = false
}

// NeedsUnlock reports whether an alert wanted to sound while audio was
// still locked, so the UI can surface an enable-sound hint.
func (s *Scheduler) NeedsUnlock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wantUnlock
}

// SetToggles replaces the category mutes.
func (s *Scheduler) SetToggles(t Toggles) {
	s.mu.Lock()
	s.toggles = t
	s.mu.Unlock()
	s.Evaluate(nil)
}

// Toggles returns the current category mutes.
func (s *Scheduler) Toggles() Toggles {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggles
}

// ToggleDevice flips the per-device mute and reports the new state.
func (s *Scheduler) ToggleDevice(id string) bool {
	s.mu.Lock()
	s.muted[id] = !s.muted[id]
	nowMuted := s.muted[id]
	s.mu.Unlock()
	s.Evaluate(nil)
	return nowMuted
}

// DeviceMuted reports the per-device mute.
func (s *Scheduler) DeviceMuted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted[id]
}

// Evaluate feeds the latest rendered views into the scheduler. A nil
// slice re-evaluates the previous views, for toggle changes between
// polls.
func (s *Scheduler) Evaluate(views []domain.DeviceView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if views != nil {
		s.views = views
	}
	s.reconcileLocked()
}

// Stop cancels any pending alert.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) anyEligibleLocked() bool {
	now := s.now().Unix()
	for _, v := range s.views {
		if Eligible(v, s.toggles, s.muted[v.ID], now) {
			return true
		}
	}
	return false
}

func (s *Scheduler) reconcileLocked() {
	if s.anyEligibleLocked() {
		if s.timer == nil {
			s.timer = s.after(s.delay, s.fire)
		}
		return
	}
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.delay = FirstDelay
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	if !s.anyEligibleLocked() {
		// Eligibility cleared before the deadline.
		s.delay = FirstDelay
		s.mu.Unlock()
		return
	}
	armed := s.armed
	if !armed {
		s.wantUnlock = true
	}
	s.delay = RepeatDelay
	s.timer = s.after(s.delay, s.fire)
	player := s.player
	s.mu.Unlock()

	if armed && player != nil {
		_ = player.Play()
	}
}
