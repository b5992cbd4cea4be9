package ports

import (
	"context"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// SourceClient fetches the raw device list from one telemetry source.
type SourceClient interface {
	// FetchDevices performs one bounded fetch. It returns the parsed
	// samples, the HTTP status code observed (0 when the transport
	// failed before a response), and the round-trip time.
	FetchDevices(ctx context.Context) (samples []domain.DeviceSample, status int, rtt time.Duration, err error)

	// ID and Name identify the source for attribution and status.
	ID() string
	Name() string
}

// StateStore persists per-device state between poll cycles.
type StateStore interface {
	// LoadAll returns every persisted device state keyed by identity.
	LoadAll() (map[string]*domain.DeviceState, error)

	// SaveBatch upserts the given states in one transaction.
	SaveBatch(states []*domain.DeviceState) error

	// PruneStale deletes states not observed since the cutoff and
	// returns how many were removed.
	PruneStale(cutoff time.Time) (int64, error)

	// Close closes the underlying database.
	Close() error
}

// HistoryStore records per-device metric snapshots over time.
type HistoryStore interface {
	RecordMetrics(points []domain.MetricPoint) error
	DeviceHistory(key string, since time.Time) ([]domain.MetricPoint, error)
}

// Pusher delivers a notification intent to the external push sink.
// Implementations are best-effort: a false return means the attempt did
// not reach the sink with a 2xx and the caller must not stamp the
// suppression marker.
type Pusher interface {
	Push(ctx context.Context, intent domain.NotificationIntent) bool
}

// DeviceBroadcaster fans out each cycle's device views to connected
// wall clients.
type DeviceBroadcaster interface {
	BroadcastDevices(list domain.DeviceList)
}
