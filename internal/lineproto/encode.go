package lineproto

import (
	"strconv"
	"strings"

	"github.com/nerrad567/sensorbridge/internal/reading"
)

// Measurement is the measurement name every point is written under.
const Measurement = "SHT20"

// Encode builds the line protocol record for r at ns nanoseconds since the epoch.
// Tag and field order are fixed.
func Encode(r reading.SensorReading, ns int64) string {
	var b strings.Builder
	b.Grow(96 + len(r.SensorID) + len(r.Location) + len(r.ProcessStage))

	b.WriteString(Measurement)
	b.WriteString(",sensor_id=")
	b.WriteString(EscapeTag(r.SensorID))
	b.WriteString(",location=")
	b.WriteString(EscapeTag(r.Location))
	b.WriteString(",process_stage=")
	b.WriteString(EscapeTag(r.ProcessStage))

	b.WriteString(" temperature_celsius=")
	b.WriteString(formatField(r.TemperatureCelsius))
	b.WriteString(",humidity_percent=")
	b.WriteString(formatField(r.HumidityPercent))

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(ns, 10))

	return b.String()
}

// formatField renders a float field in shortest round-trip decimal form.
func formatField(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
