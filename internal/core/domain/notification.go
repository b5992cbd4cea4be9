package domain

import "fmt"

// NotificationCategory classifies a notification intent.
type NotificationCategory string

const (
	NotifyOffline     NotificationCategory = "offline"
	NotifyOnline      NotificationCategory = "online"
	NotifyFlapping    NotificationCategory = "flapping"
	NotifyLatencyHigh NotificationCategory = "latency-high"
)

// Push priorities per category, matching the dashboard's escalation
// levels (offline loudest, recovery and latency informational).
const (
	PriorityOffline = 8
	PriorityFlap    = 6
	PriorityOnline  = 5
	PriorityLatency = 5
)

// NotificationIntent is an ephemeral request to notify about a device
// condition. Produced by the decision engine, consumed by the dispatcher.
type NotificationIntent struct {
	Category  NotificationCategory
	DeviceKey string
	Title     string
	Message   string
	Priority  int
}

// OfflineIntent builds the intent for a device that crossed the offline
// notification threshold.
func OfflineIntent(s DeviceSample) NotificationIntent {
	return NotificationIntent{
		Category:  NotifyOffline,
		DeviceKey: s.Key,
		Title:     s.Role.Label() + " Offline",
		Message:   s.Name + " is OFFLINE",
		Priority:  PriorityOffline,
	}
}

// OnlineIntent builds the recovery intent for a device that came back
// after an offline notification had been sent.
func OnlineIntent(s DeviceSample) NotificationIntent {
	return NotificationIntent{
		Category:  NotifyOnline,
		DeviceKey: s.Key,
		Title:     s.Role.Label() + " Online",
		Message:   s.Name + " is back ONLINE",
		Priority:  PriorityOnline,
	}
}

// FlapIntent builds the intent for a device flapping count times within
// the trailing flap window.
func FlapIntent(s DeviceSample, count int) NotificationIntent {
	return NotificationIntent{
		Category:  NotifyFlapping,
		DeviceKey: s.Key,
		Title:     s.Role.Label() + " Flapping",
		Message:   fmt.Sprintf("%s flapped %d times in last %d minutes", s.Name, count, FlapWindow/60),
		Priority:  PriorityFlap,
	}
}

// LatencyIntent builds the intent for sustained high latency. The sample
// latency may be nil when the streak was built from earlier polls.
func LatencyIntent(s DeviceSample) NotificationIntent {
	msg := s.Name + " latency sustained high"
	if s.LatencyMs != nil {
		msg = fmt.Sprintf("%s latency %.0f ms", s.Name, *s.LatencyMs)
	}
	return NotificationIntent{
		Category:  NotifyLatencyHigh,
		DeviceKey: s.Key,
		Title:     s.Role.Label() + " Latency High",
		Message:   msg,
		Priority:  PriorityLatency,
	}
}
