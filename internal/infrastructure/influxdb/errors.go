package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
//	if errors.Is(err, influxdb.ErrUnhealthy) {
//	    // upstream answered but reports a problem
//	}
var (
	// ErrUnhealthy indicates the server answered the ping but is not ready.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrQueryFailed indicates a Flux query could not be run or decoded.
	ErrQueryFailed = errors.New("influxdb: query failed")

	// ErrInvalidRange indicates a history query with stop before start.
	ErrInvalidRange = errors.New("influxdb: invalid time range")
)
