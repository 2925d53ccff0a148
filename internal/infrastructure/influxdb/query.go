package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/nerrad567/sensorbridge/internal/lineproto"
)

// Query bounds.
const (
	// LatestLookback is how far back Latest searches.
	LatestLookback = 30 * 24 * time.Hour

	DefaultRangeLimit = 1000
	MaxRangeLimit     = 10000
)

// StoredReading is one reading as stored upstream.
type StoredReading struct {
	Time               time.Time `json:"time"`
	SensorID           string    `json:"sensor_id"`
	Location           string    `json:"location"`
	ProcessStage       string    `json:"process_stage"`
	TemperatureCelsius float64   `json:"temperature_celsius"`
	HumidityPercent    float64   `json:"humidity_percent"`
}

// RangeQuery selects readings in [Start, Stop).
type RangeQuery struct {
	Start    time.Time
	Stop     time.Time
	SensorID string // optional
	Limit    int    // default 1000, max 10000
}

// Latest returns the most recent reading of each sensor, or of one sensor
// when sensorID is set.
func (c *Client) Latest(ctx context.Context, sensorID string) ([]StoredReading, error) {
	return c.run(ctx, latestFlux(c.bucket, sensorID))
}

// Range returns readings in the window, oldest first.
func (c *Client) Range(ctx context.Context, q RangeQuery) ([]StoredReading, error) {
	if !q.Stop.After(q.Start) {
		return nil, fmt.Errorf("%w: stop %s is not after start %s", ErrInvalidRange,
			q.Stop.Format(time.RFC3339), q.Start.Format(time.RFC3339))
	}
	return c.run(ctx, rangeFlux(c.bucket, q))
}

func (c *Client) run(ctx context.Context, flux string) ([]StoredReading, error) {
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	readings := []StoredReading{}
	for result.Next() {
		readings = append(readings, decodeRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return readings, nil
}

// latestFlux takes the last value of each field per series and pivots the
// fields into one row per sensor.
func latestFlux(bucket, sensorID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(bucket))
	fmt.Fprintf(&b, "  |> range(start: -%dh)\n", int(LatestLookback.Hours()))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", fluxString(lineproto.Measurement))
	if sensorID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.sensor_id == %s)\n", fluxString(sensorID))
	}
	b.WriteString("  |> last()\n")
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"sensor_id\"])")
	return b.String()
}

func rangeFlux(bucket string, q RangeQuery) string {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRangeLimit
	}
	if limit > MaxRangeLimit {
		limit = MaxRangeLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n",
		q.Start.UTC().Format(time.RFC3339Nano), q.Stop.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", fluxString(lineproto.Measurement))
	if q.SensorID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.sensor_id == %s)\n", fluxString(q.SensorID))
	}
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"])\n")
	fmt.Fprintf(&b, "  |> limit(n: %d)", limit)
	return b.String()
}

var fluxEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)

// fluxString renders s as a quoted Flux string literal.
func fluxString(s string) string {
	return `"` + fluxEscaper.Replace(s) + `"`
}

// decodeRecord maps a pivoted row onto a StoredReading. Missing or
// mistyped columns decode as zero values.
func decodeRecord(rec *query.FluxRecord) StoredReading {
	v := rec.Values()
	return StoredReading{
		Time:               rec.Time(),
		SensorID:           stringValue(v["sensor_id"]),
		Location:           stringValue(v["location"]),
		ProcessStage:       stringValue(v["process_stage"]),
		TemperatureCelsius: floatValue(v["temperature_celsius"]),
		HumidityPercent:    floatValue(v["humidity_percent"]),
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
