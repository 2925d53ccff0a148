package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/sensorbridge/internal/reading"
)

// Accepted describes a reading that passed validation and was sent upstream.
type Accepted struct {
	reading.SensorReading

	ConnID string `json:"conn_id"`

	// TimestampNanos is the point time written upstream.
	TimestampNanos int64 `json:"timestamp_ns"`

	// Forward is the forward outcome kind, e.g. "delivered".
	Forward string `json:"forward"`
}

// Publisher mirrors accepted readings to a live feed. Errors are logged
// and counted; they never affect the client.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a Accepted) error
}

// MQTTClient is the subset of the MQTT client used for mirroring.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTPublisher publishes each accepted reading as JSON to a per-sensor topic.
type MQTTPublisher struct {
	client MQTTClient
	topic  func(sensorID string) string
	qos    byte
}

// NewMQTTPublisher creates a publisher. topic maps a sensor ID to its topic.
func NewMQTTPublisher(client MQTTClient, topic func(sensorID string) string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

// Name implements Publisher.
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(_ context.Context, a Accepted) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding reading: %w", err)
	}
	return p.client.Publish(p.topic(a.SensorID), payload, p.qos, false)
}
