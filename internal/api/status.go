package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus is the body of GET /api/v1/status.
type SystemStatus struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Ingest        IngestMetrics  `json:"ingest"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          MQTTMetrics    `json:"mqtt"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// IngestMetrics contains sensor listener statistics.
type IngestMetrics struct {
	ActiveConnections int `json:"active_connections"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT mirror statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// handleStatus returns a JSON snapshot for humans; /metrics is the
// machine-readable counterpart.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.connections != nil {
		status.Ingest.ActiveConnections = s.connections.ActiveConnections()
	}
	if hub := s.Hub(); hub != nil {
		status.WebSocket.ConnectedClients = hub.ClientCount()
	}
	if b, ok := s.mqtt.(BrokerStatus); ok {
		status.MQTT = MQTTMetrics{Enabled: true, Connected: b.IsConnected()}
	}

	writeJSON(w, http.StatusOK, status)
}
