package reading

import "fmt"

// Sensor bounds, inclusive.
const (
	MinTemperatureCelsius = -40.0
	MaxTemperatureCelsius = 125.0
	MinHumidityPercent    = 0.0
	MaxHumidityPercent    = 100.0
)

// Validate checks a decoded reading against the physical sensor bounds.
// Returns nil when the reading may be forwarded, or an error wrapping
// ErrOutOfRange naming the first offending field.
func Validate(r SensorReading) error {
	if r.TemperatureCelsius < MinTemperatureCelsius || r.TemperatureCelsius > MaxTemperatureCelsius {
		return fmt.Errorf("%w: temperature_celsius %.1f outside [%.1f, %.1f]",
			ErrOutOfRange, r.TemperatureCelsius, MinTemperatureCelsius, MaxTemperatureCelsius)
	}
	if r.HumidityPercent < MinHumidityPercent || r.HumidityPercent > MaxHumidityPercent {
		return fmt.Errorf("%w: humidity_percent %.1f outside [%.1f, %.1f]",
			ErrOutOfRange, r.HumidityPercent, MinHumidityPercent, MaxHumidityPercent)
	}
	return nil
}
