// Package mqtt mirrors accepted readings to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and a bounded wait
//   - Last Will and Testament (LWT) so subscribers see the bridge go offline
//   - Connection health for the ops API
//
// Topic layout, under a configurable prefix (default "sensorbridge"):
//
//	sensorbridge/readings/{sensor_id}   accepted readings (JSON)
//	sensorbridge/status                 online/offline, retained
//
// The mirror is best effort. A broker outage never blocks or fails the
// ingest path; publish errors are returned to the caller to be logged.
package mqtt
