package domain

import "time"

// MetricPoint is one historical metrics row for a device, recorded about
// once per minute while the device is observed.
type MetricPoint struct {
	DeviceKey   string    `json:"device_id"`
	Name        string    `json:"name"`
	CPU         *float64  `json:"cpu"`
	RAM         *float64  `json:"ram"`
	Temperature *float64  `json:"temp"`
	LatencyMs   *float64  `json:"latency"`
	Online      bool      `json:"online"`
	RecordedAt  time.Time `json:"recorded_at"`
}
