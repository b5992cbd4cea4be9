// Package override applies speculative local mutations (simulated
// faults and their clearing) on top of server data until the server
// confirms them or their TTL elapses.
package override

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// TTL bounds how long an unconfirmed override keeps masking server
// truth.
const TTL = 60 * time.Second

type Mode string

const (
	ModeForceOffline  Mode = "force-offline"
	ModeClearOverride Mode = "clear-override"
)

// Override is one pending speculative mutation for a device.
type Override struct {
	ID        string
	DeviceID  string
	Mode      Mode
	Since     int64 // synthetic offline_since for force-offline
	ExpiresAt time.Time
}

// Set tracks at most one pending override per device.
type Set struct {
	mu       sync.Mutex
	byDevice map[string]*Override
	now      func() time.Time
}

func NewSet() *Set {
	return &Set{
		byDevice: make(map[string]*Override),
		now:      time.Now,
	}
}

// ForceOffline records a pending simulated fault for the device. The
// caller flips its local view immediately; the server mutation request
// follows separately.
func (s *Set) ForceOffline(deviceID string) *Override {
	return s.put(deviceID, ModeForceOffline)
}

// ClearOverride records a pending clear of a simulated fault.
func (s *Set) ClearOverride(deviceID string) *Override {
	return s.put(deviceID, ModeClearOverride)
}

func (s *Set) put(deviceID string, mode Mode) *Override {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	ov := &Override{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Mode:      mode,
		ExpiresAt: now.Add(TTL),
	}
	if mode == ModeForceOffline {
		ov.Since = now.Unix()
	}
	s.byDevice[deviceID] = ov
	return ov
}

// Pending reports how many overrides are still active.
func (s *Set) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byDevice)
}

// Apply re-applies every active override on top of views, in place.
// An override is dropped as confirmed when the server data already
// reflects its intent, and dropped unconditionally once its TTL has
// elapsed. fromServer marks a render backed by a fresh server
// response; on snapshot or local re-renders an unconfirmed override's
// expiry slides forward instead.
func (s *Set) Apply(views []domain.DeviceView, fromServer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range views {
		v := &views[i]
		ov, ok := s.byDevice[v.ID]
		if !ok {
			continue
		}
		if now.After(ov.ExpiresAt) {
			delete(s.byDevice, v.ID)
			continue
		}
		if fromServer && confirmed(ov, v) {
			delete(s.byDevice, v.ID)
			continue
		}
		if !fromServer {
			ov.ExpiresAt = now.Add(TTL)
		}
		mask(ov, v)
	}

	// Overrides for devices absent from the render still expire.
	for id, ov := range s.byDevice {
		if now.After(ov.ExpiresAt) {
			delete(s.byDevice, id)
		}
	}
}

func confirmed(ov *Override, v *domain.DeviceView) bool {
	switch ov.Mode {
	case ModeForceOffline:
		return v.Simulate || !v.Online
	case ModeClearOverride:
		return !v.Simulate
	}
	return true
}

func mask(ov *Override, v *domain.DeviceView) {
	switch ov.Mode {
	case ModeForceOffline:
		v.Online = false
		v.Simulate = true
		if v.OfflineSince == nil {
			since := ov.Since
			v.OfflineSince = &since
		}
	case ModeClearOverride:
		v.Online = true
		v.Simulate = false
		v.OfflineSince = nil
	}
}
