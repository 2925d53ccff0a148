package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/sensorbridge/internal/infrastructure/influxdb"
)

// defaultRangeWindow is used when a range query omits start.
const defaultRangeWindow = time.Hour

// ReadingsResponse wraps reading history results.
type ReadingsResponse struct {
	Readings []influxdb.StoredReading `json:"readings"`
	Count    int                      `json:"count"`
}

// handleLatestReadings returns the newest reading per sensor.
//
// Query parameters:
//   - sensor_id: restrict to one sensor
func (s *Server) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	if s.readings == nil {
		writeUnavailable(w, "reading history not configured")
		return
	}

	readings, err := s.readings.Latest(r.Context(), r.URL.Query().Get("sensor_id"))
	if err != nil {
		s.logger.Error("latest readings query failed", "error", err)
		writeUpstreamError(w, "failed to query latest readings")
		return
	}

	writeReadings(w, readings)
}

// handleListReadings returns readings in a time window, oldest first.
//
// Query parameters:
//   - start: RFC3339 time, default one hour before stop
//   - stop: RFC3339 time, default now
//   - sensor_id: restrict to one sensor
//   - limit: max results (default 1000, max 10000)
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	if s.readings == nil {
		writeUnavailable(w, "reading history not configured")
		return
	}

	q := r.URL.Query()
	rq := influxdb.RangeQuery{
		Stop:     time.Now().UTC(),
		SensorID: q.Get("sensor_id"),
	}

	if v := q.Get("stop"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "stop must be an RFC3339 timestamp")
			return
		}
		rq.Stop = t
	}
	rq.Start = rq.Stop.Add(-defaultRangeWindow)
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "start must be an RFC3339 timestamp")
			return
		}
		rq.Start = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		rq.Limit = n
	}

	readings, err := s.readings.Range(r.Context(), rq)
	if err != nil {
		if errors.Is(err, influxdb.ErrInvalidRange) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("range readings query failed", "error", err)
		writeUpstreamError(w, "failed to query readings")
		return
	}

	writeReadings(w, readings)
}

func writeReadings(w http.ResponseWriter, readings []influxdb.StoredReading) {
	if readings == nil {
		readings = []influxdb.StoredReading{}
	}
	writeJSON(w, http.StatusOK, ReadingsResponse{Readings: readings, Count: len(readings)})
}
