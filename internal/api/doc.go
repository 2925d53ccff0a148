// Package api implements the operations HTTP server for the sensor bridge.
//
// This package provides:
//   - Health and status endpoints covering the upstream, MQTT and audit database
//   - Prometheus exposition at /metrics
//   - Reading history backed by Flux queries against the upstream bucket
//   - Audit log browsing when the SQLite audit sink is enabled
//   - A WebSocket hub that relays accepted readings to browsers
//
// # Architecture
//
// The ingest path never depends on this server. The Hub is handed to the
// ingest server as a publisher; everything else here only reads.
//
//	sensor ──TCP──► ingest ──► upstream write
//	                  │
//	                  └──► Hub ──► /api/v1/ws clients (channel "reading.accepted")
//
// # Graceful Degradation
//
// Every dependency other than the logger is optional. Endpoints whose
// backing component is missing answer 503 and the health report lists the
// component as disabled.
package api
