// Package storage persists device state and metric history using GORM
// over SQLite.
package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// SQLiteStore implements ports.StateStore and ports.HistoryStore.
type SQLiteStore struct {
	db *gorm.DB
}

// DeviceStateModel is the GORM model for persisted device state.
type DeviceStateModel struct {
	Key  string `gorm:"primaryKey"`
	Name string
	Role string

	OfflineSince *int64
	LastSeen     int64
	AckUntil     *int64
	Simulate     bool

	// FlapHistory is a JSON encoded []int64 of recovery timestamps.
	FlapHistory       string
	LatencyHighStreak int

	LastOfflineNotifyAt *int64
	LastFlapNotifyAt    *int64
	LastLatencyNotifyAt *int64

	ObservedAt int64
}

// MetricModel is one historical metrics row per device per minute.
type MetricModel struct {
	ID          uint   `gorm:"primaryKey"`
	DeviceKey   string `gorm:"index"`
	Name        string
	CPU         *float64
	RAM         *float64
	Temperature *float64
	LatencyMs   *float64
	Online      bool
	RecordedAt  time.Time `gorm:"index"`
}

// NewSQLiteStore opens (creating if needed) the database and migrates
// the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if err := db.AutoMigrate(&DeviceStateModel{}, &MetricModel{}); err != nil {
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	db.Exec("CREATE INDEX IF NOT EXISTS idx_metrics_device_time ON metric_models(device_key, recorded_at)")
	return &SQLiteStore{db: db}, nil
}

// LoadAll returns every persisted device state keyed by identity.
func (s *SQLiteStore) LoadAll() (map[string]*domain.DeviceState, error) {
	var models []DeviceStateModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*domain.DeviceState, len(models))
	for i := range models {
		st := toState(&models[i])
		out[st.Key] = st
	}
	return out, nil
}

// SaveBatch upserts the given states in one transaction.
func (s *SQLiteStore) SaveBatch(states []*domain.DeviceState) error {
	if len(states) == 0 {
		return nil
	}
	models := make([]DeviceStateModel, 0, len(states))
	for _, st := range states {
		models = append(models, toModel(st))
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&models).Error
}

// PruneStale removes states whose last observation predates the cutoff.
func (s *SQLiteStore) PruneStale(cutoff time.Time) (int64, error) {
	res := s.db.Where("observed_at < ?", cutoff.Unix()).Delete(&DeviceStateModel{})
	return res.RowsAffected, res.Error
}

// RecordMetrics appends history rows for one poll cycle.
func (s *SQLiteStore) RecordMetrics(points []domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}
	models := make([]MetricModel, 0, len(points))
	for _, p := range points {
		models = append(models, MetricModel{
			DeviceKey:   p.DeviceKey,
			Name:        p.Name,
			CPU:         p.CPU,
			RAM:         p.RAM,
			Temperature: p.Temperature,
			LatencyMs:   p.LatencyMs,
			Online:      p.Online,
			RecordedAt:  p.RecordedAt,
		})
	}
	return s.db.Create(&models).Error
}

// DeviceHistory returns the metric rows for one device since the given
// time, oldest first.
func (s *SQLiteStore) DeviceHistory(key string, since time.Time) ([]domain.MetricPoint, error) {
	var models []MetricModel
	err := s.db.Where("device_key = ? AND recorded_at >= ?", key, since).
		Order("recorded_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.MetricPoint, 0, len(models))
	for _, m := range models {
		out = append(out, domain.MetricPoint{
			DeviceKey:   m.DeviceKey,
			Name:        m.Name,
			CPU:         m.CPU,
			RAM:         m.RAM,
			Temperature: m.Temperature,
			LatencyMs:   m.LatencyMs,
			Online:      m.Online,
			RecordedAt:  m.RecordedAt,
		})
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
