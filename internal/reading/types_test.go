package reading

import (
	"errors"
	"testing"
)

func TestDecode_Valid(t *testing.T) {
	line := []byte(`{"timestamp":"2023-11-14T22:13:20Z","sensor_id":"S1","location":"Room A","process_stage":"Ferment","temperature_celsius":25.5,"humidity_percent":60.2}`)

	r, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := SensorReading{
		Timestamp:          "2023-11-14T22:13:20Z",
		SensorID:           "S1",
		Location:           "Room A",
		ProcessStage:       "Ferment",
		TemperatureCelsius: 25.5,
		HumidityPercent:    60.2,
	}
	if r != want {
		t.Errorf("Decode() = %+v, want %+v", r, want)
	}
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	line := []byte(`{"timestamp":"x","sensor_id":"S1","location":"L","process_stage":"P","temperature_celsius":1,"humidity_percent":2,"firmware":"1.2"}`)

	if _, err := Decode(line); err != nil {
		t.Errorf("Decode() error = %v, want nil", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `hello`},
		{"empty", ``},
		{"truncated", `{"sensor_id":"S1"`},
		{"array", `[1,2,3]`},
		{"missing humidity", `{"timestamp":"x","sensor_id":"S1","location":"L","process_stage":"P","temperature_celsius":1}`},
		{"missing sensor_id", `{"timestamp":"x","location":"L","process_stage":"P","temperature_celsius":1,"humidity_percent":2}`},
		{"null location", `{"timestamp":"x","sensor_id":"S1","location":null,"process_stage":"P","temperature_celsius":1,"humidity_percent":2}`},
		{"string temperature", `{"timestamp":"x","sensor_id":"S1","location":"L","process_stage":"P","temperature_celsius":"hot","humidity_percent":2}`},
		{"numeric sensor_id", `{"timestamp":"x","sensor_id":7,"location":"L","process_stage":"P","temperature_celsius":1,"humidity_percent":2}`},
		{"trailing garbage", `{"timestamp":"x","sensor_id":"S1","location":"L","process_stage":"P","temperature_celsius":1,"humidity_percent":2} extra`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformed", tt.line, err)
			}
		})
	}
}
