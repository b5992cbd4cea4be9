package monitor

import (
	"errors"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// ErrUnknownDevice is returned when an operation targets a device that
// has never been observed.
var ErrUnknownDevice = errors.New("unknown device")

// Ack sets ack_until = now + the duration the token maps to. Unknown
// tokens fall back to 30 minutes, matching the dashboard.
func (m *Monitor) Ack(key, durationToken string) error {
	seconds, ok := domain.AckDurations[durationToken]
	if !ok {
		seconds = domain.DefaultAckSeconds
	}
	until := m.now().Unix() + seconds

	return m.mutateState(key, func(st *domain.DeviceState, view *domain.DeviceView) {
		st.AckUntil = &until
		if view != nil {
			view.AckUntil = &until
		}
	})
}

// ClearAck unsets the acknowledgement for one device.
func (m *Monitor) ClearAck(key string) error {
	return m.mutateState(key, func(st *domain.DeviceState, view *domain.DeviceView) {
		st.AckUntil = nil
		if view != nil {
			view.AckUntil = nil
		}
	})
}

// ClearAllAcks unsets every acknowledgement.
func (m *Monitor) ClearAllAcks() error {
	m.mu.Lock()
	dirty := make([]*domain.DeviceState, 0)
	for _, st := range m.states {
		if st.AckUntil != nil {
			st.AckUntil = nil
			dirty = append(dirty, st)
		}
	}
	for i := range m.snapshot.Devices {
		m.snapshot.Devices[i].AckUntil = nil
	}
	m.mu.Unlock()
	return m.store.SaveBatch(dirty)
}

// Simulate forces the device offline until cleared. The next cycle
// treats it exactly like a real outage.
func (m *Monitor) Simulate(key string) error {
	now := m.now().Unix()
	return m.mutateState(key, func(st *domain.DeviceState, view *domain.DeviceView) {
		st.Simulate = true
		if st.OfflineSince == nil {
			st.OfflineSince = &now
		}
		if view != nil {
			view.Simulate = true
			view.Online = false
			if view.OfflineSince == nil {
				view.OfflineSince = st.OfflineSince
			}
		}
	})
}

// ClearSimulate lifts the forced fault and wipes the outage state it
// created so the wall snaps back immediately.
func (m *Monitor) ClearSimulate(key string) error {
	return m.mutateState(key, func(st *domain.DeviceState, view *domain.DeviceView) {
		st.Simulate = false
		st.OfflineSince = nil
		st.LastOfflineNotifyAt = nil
		if view != nil {
			view.Simulate = false
			view.Online = true
			view.OfflineSince = nil
		}
	})
}

// mutateState applies fn to the device state (creating it on first use,
// as the dashboard does for unseen ids) and to the cached view when one
// exists, then persists the state.
func (m *Monitor) mutateState(key string, fn func(st *domain.DeviceState, view *domain.DeviceView)) error {
	m.mu.Lock()
	st, ok := m.states[key]
	if !ok {
		st = &domain.DeviceState{Key: key}
		m.states[key] = st
	}
	var view *domain.DeviceView
	for i := range m.snapshot.Devices {
		if m.snapshot.Devices[i].ID == key {
			view = &m.snapshot.Devices[i]
			break
		}
	}
	fn(st, view)
	m.mu.Unlock()

	return m.store.SaveBatch([]*domain.DeviceState{st})
}
