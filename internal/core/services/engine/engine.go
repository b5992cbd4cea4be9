// Package engine holds the device health reconciliation rules: it turns
// one poll observation plus the persisted per-device state into the next
// state and the notifications that should be attempted.
//
// Evaluate performs no I/O. Suppression markers are stamped by the caller
// once a dispatch attempt actually reaches the push sink, so a failed
// delivery is retried on the next cycle instead of being silenced.
package engine

import (
	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// Marker identifies which suppression marker a successful dispatch stamps.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerOffline
	MarkerFlap
	MarkerLatency
)

// PendingIntent pairs a notification intent with the suppression marker
// to stamp when the dispatch attempt succeeds.
type PendingIntent struct {
	domain.NotificationIntent
	Marker Marker
}

// Outcome reports the per-device results of one evaluation.
type Outcome struct {
	EffectiveOnline bool
	FlapsRecent     int
	FlapAlert       bool
	LatencyAlert    bool
	Intents         []PendingIntent
}

// Evaluate applies one sample to the device state for the poll cycle
// captured at now (epoch seconds). The state is mutated in place; the
// caller owns serialization. Samples for unmonitored categories must be
// filtered out before this point.
func Evaluate(sample domain.DeviceSample, st *domain.DeviceState, now int64) Outcome {
	var out Outcome

	st.Name = sample.Name
	st.Role = sample.Role
	st.ObservedAt = now

	online := sample.Online && !st.Simulate
	out.EffectiveOnline = online

	backbone := sample.Role.IsBackbone()
	ack := st.AckActive(now)
	prevOfflineSince := st.OfflineSince

	if !online {
		if st.OfflineSince == nil {
			since := now
			st.OfflineSince = &since
		}
		if backbone && !ack {
			thresholdMet := now-*st.OfflineSince >= domain.FirstOfflineThreshold
			repeatDue := st.LastOfflineNotifyAt != nil && now-*st.LastOfflineNotifyAt >= domain.OfflineRepeatInterval
			if thresholdMet && (st.LastOfflineNotifyAt == nil || repeatDue) {
				out.Intents = append(out.Intents, PendingIntent{
					NotificationIntent: domain.OfflineIntent(sample),
					Marker:             MarkerOffline,
				})
			}
		}
	} else {
		st.LastSeen = now
		st.OfflineSince = nil
		if prevOfflineSince != nil && backbone && st.LastOfflineNotifyAt != nil {
			// An offline notification went out for this outage; close the
			// loop. The marker clears immediately so that a fresh outage
			// notifies again from scratch.
			out.Intents = append(out.Intents, PendingIntent{
				NotificationIntent: domain.OnlineIntent(sample),
				Marker:             MarkerNone,
			})
			st.LastOfflineNotifyAt = nil
		} else if st.LastOfflineNotifyAt != nil {
			st.LastOfflineNotifyAt = nil
		}
	}

	evaluateFlaps(sample, st, now, online, backbone, ack, prevOfflineSince, &out)
	evaluateLatency(sample, st, now, backbone, ack, &out)

	return out
}

// evaluateFlaps maintains the recovery history and the flapping alert.
// Only recoveries are counted, not fresh outages; a same-cycle
// offline-online-offline sequence therefore contributes a single entry.
func evaluateFlaps(sample domain.DeviceSample, st *domain.DeviceState, now int64, online, backbone, ack bool, prevOfflineSince *int64, out *Outcome) {
	if len(st.FlapHistory) > 0 {
		pruned := st.FlapHistory[:0]
		for _, ts := range st.FlapHistory {
			if now-ts <= domain.FlapWindow {
				pruned = append(pruned, ts)
			}
		}
		st.FlapHistory = pruned
	}
	if backbone && prevOfflineSince != nil && online {
		st.FlapHistory = append(st.FlapHistory, now)
	}

	if !backbone {
		return
	}
	out.FlapsRecent = len(st.FlapHistory)
	out.FlapAlert = out.FlapsRecent >= domain.FlapThreshold

	if out.FlapAlert && !ack {
		last := int64(0)
		if st.LastFlapNotifyAt != nil {
			last = *st.LastFlapNotifyAt
		}
		if now-last >= domain.FlapSuppress {
			out.Intents = append(out.Intents, PendingIntent{
				NotificationIntent: domain.FlapIntent(sample, out.FlapsRecent),
				Marker:             MarkerFlap,
			})
		}
	} else if !out.FlapAlert && st.LastFlapNotifyAt != nil {
		// Condition cleared: let the next flap episode notify immediately.
		st.LastFlapNotifyAt = nil
	}
}

// evaluateLatency maintains the consecutive high-latency streak. The
// streak updates even while acknowledged; only the emission is gated.
func evaluateLatency(sample domain.DeviceSample, st *domain.DeviceState, now int64, backbone, ack bool, out *Outcome) {
	if !backbone {
		return
	}

	if sample.LatencyMs != nil && *sample.LatencyMs >= domain.LatencyThresholdMs {
		st.LatencyHighStreak++
	} else {
		st.LatencyHighStreak = 0
	}

	if st.LatencyHighStreak >= domain.LatencyStreak {
		out.LatencyAlert = true
		if !ack {
			last := int64(0)
			if st.LastLatencyNotifyAt != nil {
				last = *st.LastLatencyNotifyAt
			}
			if now-last >= domain.LatencySuppress {
				out.Intents = append(out.Intents, PendingIntent{
					NotificationIntent: domain.LatencyIntent(sample),
					Marker:             MarkerLatency,
				})
			}
		}
	} else if st.LastLatencyNotifyAt != nil && now-*st.LastLatencyNotifyAt > domain.LatencySuppress {
		st.LastLatencyNotifyAt = nil
	}
}

// Stamp records a successful dispatch attempt on the state so the
// suppression window starts counting from at.
func Stamp(st *domain.DeviceState, m Marker, at int64) {
	switch m {
	case MarkerOffline:
		st.LastOfflineNotifyAt = &at
	case MarkerFlap:
		st.LastFlapNotifyAt = &at
	case MarkerLatency:
		st.LastLatencyNotifyAt = &at
	}
}
