package reading

import (
	"encoding/json"
	"fmt"
)

// SensorReading is one measurement as sent by the sensor reader.
type SensorReading struct {
	Timestamp          string  `json:"timestamp"`
	SensorID           string  `json:"sensor_id"`
	Location           string  `json:"location"`
	ProcessStage       string  `json:"process_stage"`
	TemperatureCelsius float64 `json:"temperature_celsius"`
	HumidityPercent    float64 `json:"humidity_percent"`
}

// wireReading mirrors SensorReading with pointers so absent and null
// fields can be told apart from zero values.
type wireReading struct {
	Timestamp          *string  `json:"timestamp"`
	SensorID           *string  `json:"sensor_id"`
	Location           *string  `json:"location"`
	ProcessStage       *string  `json:"process_stage"`
	TemperatureCelsius *float64 `json:"temperature_celsius"`
	HumidityPercent    *float64 `json:"humidity_percent"`
}

// Decode parses one line of client input.
//
// Every field is required; unknown fields are ignored. Any failure wraps
// ErrMalformed.
func Decode(line []byte) (SensorReading, error) {
	var w wireReading
	if err := json.Unmarshal(line, &w); err != nil {
		return SensorReading{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	missing := w.missingField()
	if missing != "" {
		return SensorReading{}, fmt.Errorf("%w: missing field %q", ErrMalformed, missing)
	}

	return SensorReading{
		Timestamp:          *w.Timestamp,
		SensorID:           *w.SensorID,
		Location:           *w.Location,
		ProcessStage:       *w.ProcessStage,
		TemperatureCelsius: *w.TemperatureCelsius,
		HumidityPercent:    *w.HumidityPercent,
	}, nil
}

// missingField returns the JSON name of the first absent field, or "".
func (w *wireReading) missingField() string {
	switch {
	case w.Timestamp == nil:
		return "timestamp"
	case w.SensorID == nil:
		return "sensor_id"
	case w.Location == nil:
		return "location"
	case w.ProcessStage == nil:
		return "process_stage"
	case w.TemperatureCelsius == nil:
		return "temperature_celsius"
	case w.HumidityPercent == nil:
		return "humidity_percent"
	}
	return ""
}
