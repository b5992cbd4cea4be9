package storage

import (
	"encoding/json"
	"log"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

func toModel(st *domain.DeviceState) DeviceStateModel {
	history := "[]"
	if len(st.FlapHistory) > 0 {
		if b, err := json.Marshal(st.FlapHistory); err == nil {
			history = string(b)
		}
	}
	return DeviceStateModel{
		Key:                 st.Key,
		Name:                st.Name,
		Role:                string(st.Role),
		OfflineSince:        st.OfflineSince,
		LastSeen:            st.LastSeen,
		AckUntil:            st.AckUntil,
		Simulate:            st.Simulate,
		FlapHistory:         history,
		LatencyHighStreak:   st.LatencyHighStreak,
		LastOfflineNotifyAt: st.LastOfflineNotifyAt,
		LastFlapNotifyAt:    st.LastFlapNotifyAt,
		LastLatencyNotifyAt: st.LastLatencyNotifyAt,
		ObservedAt:          st.ObservedAt,
	}
}

func toState(m *DeviceStateModel) *domain.DeviceState {
	var history []int64
	if m.FlapHistory != "" {
		if err := json.Unmarshal([]byte(m.FlapHistory), &history); err != nil {
			log.Printf("storage: dropping corrupt flap history for %s: %v", m.Key, err)
			history = nil
		}
	}
	return &domain.DeviceState{
		Key:                 m.Key,
		Name:                m.Name,
		Role:                domain.Role(m.Role),
		OfflineSince:        m.OfflineSince,
		LastSeen:            m.LastSeen,
		AckUntil:            m.AckUntil,
		Simulate:            m.Simulate,
		FlapHistory:         history,
		LatencyHighStreak:   m.LatencyHighStreak,
		LastOfflineNotifyAt: m.LastOfflineNotifyAt,
		LastFlapNotifyAt:    m.LastFlapNotifyAt,
		LastLatencyNotifyAt: m.LastLatencyNotifyAt,
		ObservedAt:          m.ObservedAt,
	}
}
