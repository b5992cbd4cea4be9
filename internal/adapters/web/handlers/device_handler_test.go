package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

type fakeMonitor struct {
	list         domain.DeviceList
	unconfigured bool
	err          error

	ackKey   string
	ackDur   string
	cleared  []string
	clearAll bool
	simKey   string
	clearSim string
}

func (f *fakeMonitor) Snapshot() (domain.DeviceList, bool) { return f.list, f.unconfigured }

func (f *fakeMonitor) Ack(key, dur string) error {
	f.ackKey, f.ackDur = key, dur
	return f.err
}

func (f *fakeMonitor) ClearAck(key string) error {
	f.cleared = append(f.cleared, key)
	return f.err
}

func (f *fakeMonitor) ClearAllAcks() error {
	f.clearAll = true
	return f.err
}

func (f *fakeMonitor) Simulate(key string) error {
	f.simKey = key
	return f.err
}

func (f *fakeMonitor) ClearSimulate(key string) error {
	f.clearSim = key
	return f.err
}

type fakeHistory struct {
	key    string
	since  time.Time
	points []domain.MetricPoint
	err    error
}

func (f *fakeHistory) RecordMetrics(points []domain.MetricPoint) error { return nil }

func (f *fakeHistory) DeviceHistory(key string, since time.Time) ([]domain.MetricPoint, error) {
	f.key, f.since = key, since
	return f.points, f.err
}

func deviceRequest(method, target, id string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if id != "" {
		req = mux.SetURLVars(req, map[string]string{"id": id})
	}
	return req
}

func TestHandleListReturnsSnapshot(t *testing.T) {
	mon := &fakeMonitor{list: domain.DeviceList{
		Devices:     []domain.DeviceView{{ID: "aa:bb", Name: "gw-1", Gateway: true, Online: true}},
		HTTPStatus:  200,
		APILatency:  42,
		LastUpdated: 1700000000,
	}}
	h := NewDeviceHandler(mon, nil)

	rec := httptest.NewRecorder()
	h.HandleList(rec, deviceRequest(http.MethodGet, "/api/devices", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	var got domain.DeviceList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Devices, 1)
	assert.Equal(t, "gw-1", got.Devices[0].Name)
	assert.Equal(t, 200, got.HTTPStatus)
	assert.Equal(t, int64(42), got.APILatency)
}

func TestHandleListNilDevicesRendersEmptyArray(t *testing.T) {
	h := NewDeviceHandler(&fakeMonitor{list: domain.DeviceList{HTTPStatus: 200}}, nil)

	rec := httptest.NewRecorder()
	h.HandleList(rec, deviceRequest(http.MethodGet, "/api/devices", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"devices":[]`)
	assert.NotContains(t, rec.Body.String(), `"devices":null`)
}

func TestHandleListUnconfigured(t *testing.T) {
	h := NewDeviceHandler(&fakeMonitor{unconfigured: true}, nil)

	rec := httptest.NewRecorder()
	h.HandleList(rec, deviceRequest(http.MethodGet, "/api/devices", ""))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sources_not_configured", body["error"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), body["http"])
	assert.Equal(t, []interface{}{}, body["devices"])
}

func TestHandleAck(t *testing.T) {
	mon := &fakeMonitor{}
	h := NewDeviceHandler(mon, nil)

	rec := httptest.NewRecorder()
	h.HandleAck(rec, deviceRequest(http.MethodPost, "/api/devices/aa:bb/ack?dur=1h", "aa:bb"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aa:bb", mon.ackKey)
	assert.Equal(t, "1h", mon.ackDur)
	assert.JSONEq(t, `{"ok":1}`, rec.Body.String())
}

func TestHandleAckError(t *testing.T) {
	mon := &fakeMonitor{err: errors.New("unknown device")}
	h := NewDeviceHandler(mon, nil)

	rec := httptest.NewRecorder()
	h.HandleAck(rec, deviceRequest(http.MethodPost, "/api/devices/nope/ack", "nope"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown device")
}

func TestHandleClearAck(t *testing.T) {
	mon := &fakeMonitor{}
	h := NewDeviceHandler(mon, nil)

	rec := httptest.NewRecorder()
	h.HandleClearAck(rec, deviceRequest(http.MethodPost, "/api/devices/aa:bb/clear", "aa:bb"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"aa:bb"}, mon.cleared)
}

func TestHandleClearAllAcks(t *testing.T) {
	mon := &fakeMonitor{}
	h := NewDeviceHandler(mon, nil)

	rec := httptest.NewRecorder()
	h.HandleClearAllAcks(rec, deviceRequest(http.MethodPost, "/api/acks/clear", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mon.clearAll)
}

func TestHandleSimulateAndClear(t *testing.T) {
	mon := &fakeMonitor{}
	h := NewDeviceHandler(mon, nil)

	rec := httptest.NewRecorder()
	h.HandleSimulate(rec, deviceRequest(http.MethodPost, "/api/devices/aa:bb/simulate", "aa:bb"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aa:bb", mon.simKey)

	rec = httptest.NewRecorder()
	h.HandleClearSimulate(rec, deviceRequest(http.MethodPost, "/api/devices/aa:bb/clearsim", "aa:bb"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aa:bb", mon.clearSim)
}

func TestHandleHistoryDefaults(t *testing.T) {
	hist := &fakeHistory{points: []domain.MetricPoint{{DeviceKey: "aa:bb", Online: true}}}
	h := NewDeviceHandler(&fakeMonitor{}, hist)

	rec := httptest.NewRecorder()
	h.HandleHistory(rec, deviceRequest(http.MethodGet, "/api/devices/aa:bb/history", "aa:bb"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aa:bb", hist.key)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), hist.since, 5*time.Second)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(24), body["hours"])
	assert.Equal(t, "aa:bb", body["device_id"])
}

func TestHandleHistoryHoursParam(t *testing.T) {
	hist := &fakeHistory{}
	h := NewDeviceHandler(&fakeMonitor{}, hist)

	rec := httptest.NewRecorder()
	h.HandleHistory(rec, deviceRequest(http.MethodGet, "/api/devices/aa:bb/history?hours=72", "aa:bb"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, time.Now().Add(-72*time.Hour), hist.since, 5*time.Second)
}

func TestHandleHistoryRejectsOutOfRangeHours(t *testing.T) {
	for _, raw := range []string{"0", "-4", "100000", "junk"} {
		hist := &fakeHistory{}
		h := NewDeviceHandler(&fakeMonitor{}, hist)

		rec := httptest.NewRecorder()
		h.HandleHistory(rec, deviceRequest(http.MethodGet, "/api/devices/x/history?hours="+raw, "x"))

		require.Equal(t, http.StatusOK, rec.Code, "hours=%s", raw)
		assert.WithinDuration(t, time.Now().Add(-24*time.Hour), hist.since, 5*time.Second, "hours=%s", raw)
	}
}

func TestHandleHistoryNilPointsRendersEmptyArray(t *testing.T) {
	h := NewDeviceHandler(&fakeMonitor{}, &fakeHistory{})

	rec := httptest.NewRecorder()
	h.HandleHistory(rec, deviceRequest(http.MethodGet, "/api/devices/aa:bb/history", "aa:bb"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points":[]`)
}

func TestHandleHistoryDisabled(t *testing.T) {
	h := NewDeviceHandler(&fakeMonitor{}, nil)

	rec := httptest.NewRecorder()
	h.HandleHistory(rec, deviceRequest(http.MethodGet, "/api/devices/aa:bb/history", "aa:bb"))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
