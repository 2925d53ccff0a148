package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/sensorbridge/internal/audit"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/config"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/logging"
	"github.com/nerrad567/sensorbridge/internal/metrics"
)

var testAPIConfig = config.APIConfig{
	Enabled: true,
	Host:    "127.0.0.1",
	Port:    0,
	Timeouts: config.APITimeoutConfig{
		Read:  5,
		Write: 5,
		Idle:  5,
	},
	WebSocket: config.WebSocketConfig{
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	},
}

// fakeChecker is a HealthChecker with a fixed result.
type fakeChecker struct {
	err       error
	connected bool
}

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }
func (f fakeChecker) IsConnected() bool                 { return f.connected }

// fakeStore records the queries it receives.
type fakeStore struct {
	mu       sync.Mutex
	readings []influxdb.StoredReading
	err      error
	latestID string
	rangeQ   influxdb.RangeQuery
}

func (f *fakeStore) Latest(_ context.Context, sensorID string) ([]influxdb.StoredReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestID = sensorID
	return f.readings, f.err
}

func (f *fakeStore) Range(_ context.Context, q influxdb.RangeQuery) ([]influxdb.StoredReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeQ = q
	if !q.Stop.After(q.Start) {
		return nil, influxdb.ErrInvalidRange
	}
	return f.readings, f.err
}

// fakeAuditRepo returns a fixed page and remembers the filter.
type fakeAuditRepo struct {
	mu     sync.Mutex
	filter audit.Filter
	err    error
}

func (f *fakeAuditRepo) Create(context.Context, *audit.AuditLog) error { return nil }

func (f *fakeAuditRepo) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &audit.ListResult{
		Logs: []audit.AuditLog{{
			ID:           "a1",
			Action:       audit.ActionReadingRejected,
			ConnectionID: filter.ConnectionID,
			CreatedAt:    time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		}},
		Total:  1,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

type fakeCounter int

func (f fakeCounter) ActiveConnections() int { return int(f) }

func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()

	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Config.Host == "" {
		deps.Config = testAPIConfig
	}
	if deps.Version == "" {
		deps.Version = "test"
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	go srv.hub.Run(ctx)

	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNew_RequiresLogger(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
}

// ─── Health ────────────────────────────────────────────────────────

func TestHealth_AllDisabled(t *testing.T) {
	srv := testServer(t, Deps{})
	w := get(t, srv.buildRouter(), "/api/v1/health")

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decode[HealthResponse](t, w)
	if resp.Status != HealthOK {
		t.Errorf("status = %q, want %q", resp.Status, HealthOK)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	for _, name := range []string{"upstream", "mqtt", "audit_db"} {
		if got := resp.Components[name].Status; got != HealthDisabled {
			t.Errorf("component %s = %q, want %q", name, got, HealthDisabled)
		}
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv := testServer(t, Deps{
		Upstream: fakeChecker{err: errors.New("connection refused")},
		MQTT:     fakeChecker{},
	})
	w := get(t, srv.buildRouter(), "/api/v1/health")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	resp := decode[HealthResponse](t, w)
	if resp.Status != HealthDegraded {
		t.Errorf("status = %q, want %q", resp.Status, HealthDegraded)
	}
	up := resp.Components["upstream"]
	if up.Status != HealthDown || !strings.Contains(up.Error, "connection refused") {
		t.Errorf("upstream = %+v, want down with error", up)
	}
	if got := resp.Components["mqtt"].Status; got != HealthOK {
		t.Errorf("mqtt = %q, want %q", got, HealthOK)
	}
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t, Deps{})
	w := get(t, srv.buildRouter(), "/api/v1/health")

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t, Deps{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestRecovery(t *testing.T) {
	srv := testServer(t, Deps{})
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := get(t, h, "/anything")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestNotFound(t *testing.T) {
	srv := testServer(t, Deps{})
	w := get(t, srv.buildRouter(), "/api/v1/nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if e := decode[Error](t, w); e.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeNotFound)
	}
}

// ─── Metrics and status ────────────────────────────────────────────

func TestMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ConnectionOpened()

	srv := testServer(t, Deps{Gatherer: reg})
	w := get(t, srv.buildRouter(), "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"sensorbridge_active_connections 1",
		"sensorbridge_connections_total 1",
		`sensorbridge_lines_total{result="accepted"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NotMountedWithoutGatherer(t *testing.T) {
	srv := testServer(t, Deps{})
	if w := get(t, srv.buildRouter(), "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("metrics status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestStatus(t *testing.T) {
	srv := testServer(t, Deps{
		MQTT:        fakeChecker{connected: true},
		Connections: fakeCounter(3),
	})
	w := get(t, srv.buildRouter(), "/api/v1/status")

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	st := decode[SystemStatus](t, w)
	if st.Ingest.ActiveConnections != 3 {
		t.Errorf("active connections = %d, want 3", st.Ingest.ActiveConnections)
	}
	if !st.MQTT.Enabled || !st.MQTT.Connected {
		t.Errorf("mqtt = %+v, want enabled and connected", st.MQTT)
	}
	if st.Runtime.Goroutines == 0 {
		t.Error("goroutines should be reported")
	}
}

// ─── Readings ──────────────────────────────────────────────────────

var storedReading = influxdb.StoredReading{
	Time:               time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	SensorID:           "S1",
	Location:           "Room A",
	ProcessStage:       "Ferment",
	TemperatureCelsius: 25.5,
	HumidityPercent:    60.2,
}

func TestLatestReadings(t *testing.T) {
	store := &fakeStore{readings: []influxdb.StoredReading{storedReading}}
	srv := testServer(t, Deps{Readings: store})

	w := get(t, srv.buildRouter(), "/api/v1/readings/latest?sensor_id=S1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decode[ReadingsResponse](t, w)
	if resp.Count != 1 || resp.Readings[0].SensorID != "S1" {
		t.Errorf("response = %+v", resp)
	}
	if store.latestID != "S1" {
		t.Errorf("sensor filter = %q, want S1", store.latestID)
	}
}

func TestLatestReadings_EmptyIsArray(t *testing.T) {
	srv := testServer(t, Deps{Readings: &fakeStore{}})

	w := get(t, srv.buildRouter(), "/api/v1/readings/latest")
	if !strings.Contains(w.Body.String(), `"readings":[]`) {
		t.Errorf("body = %s, want empty readings array", w.Body.String())
	}
}

func TestLatestReadings_UpstreamError(t *testing.T) {
	srv := testServer(t, Deps{Readings: &fakeStore{err: influxdb.ErrQueryFailed}})

	w := get(t, srv.buildRouter(), "/api/v1/readings/latest")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestReadings_NotConfigured(t *testing.T) {
	srv := testServer(t, Deps{})
	router := srv.buildRouter()

	for _, target := range []string{"/api/v1/readings/latest", "/api/v1/readings"} {
		if w := get(t, router, target); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want %d", target, w.Code, http.StatusServiceUnavailable)
		}
	}
}

func TestListReadings_Params(t *testing.T) {
	store := &fakeStore{readings: []influxdb.StoredReading{storedReading}}
	srv := testServer(t, Deps{Readings: store})

	w := get(t, srv.buildRouter(),
		"/api/v1/readings?start=2026-10-17T00:00:00Z&stop=2026-10-17T12:00:00Z&sensor_id=S1&limit=20")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	q := store.rangeQ
	if !q.Start.Equal(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", q.Start)
	}
	if !q.Stop.Equal(time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("stop = %v", q.Stop)
	}
	if q.SensorID != "S1" || q.Limit != 20 {
		t.Errorf("query = %+v", q)
	}
}

func TestListReadings_DefaultWindow(t *testing.T) {
	store := &fakeStore{}
	srv := testServer(t, Deps{Readings: store})

	if w := get(t, srv.buildRouter(), "/api/v1/readings"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := store.rangeQ.Stop.Sub(store.rangeQ.Start); got != defaultRangeWindow {
		t.Errorf("window = %v, want %v", got, defaultRangeWindow)
	}
}

func TestListReadings_BadRequests(t *testing.T) {
	srv := testServer(t, Deps{Readings: &fakeStore{}})
	router := srv.buildRouter()

	for _, target := range []string{
		"/api/v1/readings?start=yesterday",
		"/api/v1/readings?stop=12:00",
		"/api/v1/readings?limit=ten",
		"/api/v1/readings?limit=-1",
		"/api/v1/readings?start=2026-10-17T12:00:00Z&stop=2026-10-17T00:00:00Z",
	} {
		if w := get(t, router, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want %d", target, w.Code, http.StatusBadRequest)
		}
	}
}

// ─── Audit ─────────────────────────────────────────────────────────

func TestListAuditLogs(t *testing.T) {
	repo := &fakeAuditRepo{}
	srv := testServer(t, Deps{AuditRepo: repo})

	w := get(t, srv.buildRouter(),
		"/api/v1/audit?action=reading.rejected&connection_id=c-1&limit=10&offset=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	want := audit.Filter{Action: audit.ActionReadingRejected, ConnectionID: "c-1", Limit: 10, Offset: 5}
	if repo.filter != want {
		t.Errorf("filter = %+v, want %+v", repo.filter, want)
	}

	result := decode[audit.ListResult](t, w)
	if result.Total != 1 || result.Logs[0].ConnectionID != "c-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestListAuditLogs_IgnoresBadPaging(t *testing.T) {
	repo := &fakeAuditRepo{}
	srv := testServer(t, Deps{AuditRepo: repo})

	get(t, srv.buildRouter(), "/api/v1/audit?limit=abc&offset=xyz")
	if repo.filter.Limit != 0 || repo.filter.Offset != 0 {
		t.Errorf("filter = %+v, want zero paging", repo.filter)
	}
}

func TestListAuditLogs_Errors(t *testing.T) {
	srv := testServer(t, Deps{})
	if w := get(t, srv.buildRouter(), "/api/v1/audit"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	srv = testServer(t, Deps{AuditRepo: &fakeAuditRepo{err: errors.New("disk I/O error")}})
	if w := get(t, srv.buildRouter(), "/api/v1/audit"); w.Code != http.StatusInternalServerError {
		t.Errorf("repo error status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartClose(t *testing.T) {
	srv, err := New(Deps{Config: testAPIConfig, Logger: logging.Discard(), Version: "test"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck before Start should fail")
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
	if srv.Hub() == nil {
		t.Error("Start should create a hub")
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck after Start: %v", err)
	}

	url := "http://" + srv.Addr().String() + "/api/v1/health"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := http.Get(url); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_CloseWithoutStart(t *testing.T) {
	srv := testServer(t, Deps{})
	if err := srv.Close(); err != nil {
		t.Errorf("Close() without Start = %v, want nil", err)
	}
}

func TestServer_ExternalHub(t *testing.T) {
	hub := NewHub(testAPIConfig.WebSocket, logging.Discard())
	srv, err := New(Deps{Config: testAPIConfig, Logger: logging.Discard(), ExternalHub: hub})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if srv.Hub() != hub {
		t.Error("server should use the injected hub")
	}
}
