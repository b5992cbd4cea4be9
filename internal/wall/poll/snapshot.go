package poll

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// ErrNoSnapshot is returned by Load when no usable snapshot exists.
var ErrNoSnapshot = errors.New("no snapshot available")

type snapshotFile struct {
	Devices    []domain.DeviceView `json:"devices"`
	HTTPStatus int                 `json:"http"`
	CapturedAt int64               `json:"captured_at"`
}

// Snapshot persists the last good device list to disk so the wall can
// keep rendering something when the server is unreachable.
type Snapshot struct {
	path string
}

// NewSnapshot stores snapshots at path. An empty path disables
// persistence.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

func (s *Snapshot) Save(list domain.DeviceList, at time.Time) error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(snapshotFile{
		Devices:    list.Devices,
		HTTPStatus: list.HTTPStatus,
		CapturedAt: at.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func (s *Snapshot) Load() (domain.DeviceList, time.Time, error) {
	var list domain.DeviceList
	if s.path == "" {
		return list, time.Time{}, ErrNoSnapshot
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return list, time.Time{}, ErrNoSnapshot
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return list, time.Time{}, ErrNoSnapshot
	}
	if len(snap.Devices) == 0 {
		return list, time.Time{}, ErrNoSnapshot
	}
	list.Devices = snap.Devices
	list.HTTPStatus = snap.HTTPStatus
	return list, time.Unix(snap.CapturedAt, 0), nil
}
