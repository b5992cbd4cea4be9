package domain

import "time"

// Alerting thresholds. All windows are in seconds of wall-clock time and
// mirror the dashboard's notification policy.
const (
	// FirstOfflineThreshold is how long a backbone device must be offline
	// before the first offline notification fires.
	FirstOfflineThreshold = 30
	// OfflineRepeatInterval is the minimum gap between repeated offline
	// notifications for a still-down device.
	OfflineRepeatInterval = 600

	// FlapWindow is the trailing window recoveries are counted over.
	FlapWindow = 900
	// FlapThreshold is the recovery count within FlapWindow that marks a
	// device as flapping.
	FlapThreshold = 3
	// FlapSuppress is the minimum gap between flapping notifications
	// while the condition holds.
	FlapSuppress = 1800

	// LatencyThresholdMs is the per-sample latency that counts toward a
	// high-latency streak.
	LatencyThresholdMs = 200
	// LatencyStreak is the consecutive-poll count that marks latency as
	// sustained high.
	LatencyStreak = 3
	// LatencySuppress is the minimum gap between latency notifications,
	// and the idle time after which the suppression marker resets.
	LatencySuppress = 900
)

// GCMaxAge is how long an unobserved device state survives before the
// store garbage-collects it.
const GCMaxAge = 30 * 24 * time.Hour

// DeviceState is the per-device record persisted between poll cycles,
// keyed by the device identity key. Created on first observation, never
// explicitly deleted; stale entries are garbage-collected.
type DeviceState struct {
	Key  string
	Name string
	Role Role

	// OfflineSince is set once when the device transitions to offline and
	// cleared on recovery. Non-nil iff effective online is false.
	OfflineSince *int64
	// LastSeen is the epoch second of the last online observation.
	LastSeen int64
	// AckUntil suppresses notifications while in the future. Nil means no
	// acknowledgement.
	AckUntil *int64
	// Simulate forces the device offline regardless of the sample.
	Simulate bool

	// FlapHistory holds recovery timestamps within the trailing FlapWindow.
	FlapHistory []int64
	// LatencyHighStreak counts consecutive polls at or above
	// LatencyThresholdMs.
	LatencyHighStreak int

	// Suppression markers: epoch seconds of the last notification sent
	// per category. Nil when no notification is outstanding.
	LastOfflineNotifyAt *int64
	LastFlapNotifyAt    *int64
	LastLatencyNotifyAt *int64

	// ObservedAt is the epoch second this state was last touched by a
	// poll cycle, used for garbage collection.
	ObservedAt int64
}

// AckActive reports whether an acknowledgement is in force at now.
func (s *DeviceState) AckActive(now int64) bool {
	return s.AckUntil != nil && *s.AckUntil > now
}

// AckDurations maps acknowledgement duration tokens to seconds.
var AckDurations = map[string]int64{
	"30m": 1800,
	"1h":  3600,
	"6h":  21600,
	"8h":  28800,
	"12h": 43200,
}

// DefaultAckSeconds applies when an unknown duration token is supplied.
const DefaultAckSeconds = 1800

// DeviceView is the wire representation of a device the aggregated fetch
// returns: the merged sample plus alert state derived by the engine.
type DeviceView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Gateway  bool   `json:"gateway"`
	AP       bool   `json:"ap"`
	Router   bool   `json:"router"`
	Switch   bool   `json:"switch"`
	Station  bool   `json:"station"`
	Backbone bool   `json:"backbone"`

	SourceID   string `json:"source_id,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	Site       string `json:"site,omitempty"`
	SiteID     string `json:"site_id,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	MAC        string `json:"mac,omitempty"`
	Serial     string `json:"serial,omitempty"`
	Vendor     string `json:"vendor,omitempty"`
	Model      string `json:"model,omitempty"`

	Online      bool     `json:"online"`
	CPU         *float64 `json:"cpu"`
	RAM         *float64 `json:"ram"`
	Temperature *float64 `json:"temp"`
	LatencyMs   *float64 `json:"latency"`
	UptimeSec   *float64 `json:"uptime"`

	LastSeen     int64  `json:"last_seen"`
	OfflineSince *int64 `json:"offline_since,omitempty"`
	FlapsRecent  int    `json:"flaps_recent"`
	FlapAlert    bool   `json:"flap_alert"`
	LatencyAlert bool   `json:"latency_alert"`
	Simulate     bool   `json:"simulate"`
	AckUntil     *int64 `json:"ack_until"`
}

// DeviceList is the aggregated fetch payload.
type DeviceList struct {
	Devices     []DeviceView `json:"devices"`
	HTTPStatus  int          `json:"http"`
	APILatency  int64        `json:"api_latency"`
	LastUpdated int64        `json:"last_updated"`
}
