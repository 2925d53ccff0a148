package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "sensorbridge"

// Topics builds topic names under a prefix.
//
//	topics := mqtt.Topics{Prefix: "plant1"}
//	topics.Reading("S1") // "plant1/readings/S1"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimRight(t.Prefix, "/")
}

// Reading returns the topic for accepted readings from one sensor.
// MQTT wildcard and separator characters in the ID are replaced with '_'.
func (t Topics) Reading(sensorID string) string {
	return t.prefix() + "/readings/" + topicSegment(sensorID)
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

var segmentReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// topicSegment makes s safe as a single topic level.
func topicSegment(s string) string {
	if s == "" {
		return "_"
	}
	return segmentReplacer.Replace(s)
}
