// Package lineproto encodes sensor readings into InfluxDB line protocol.
//
// The wire shape is fixed:
//
//	SHT20,sensor_id=<tag>,location=<tag>,process_stage=<tag> temperature_celsius=<f>,humidity_percent=<f> <ns>
//
// Tag values are escaped with EscapeTag; field values are plain decimals.
package lineproto
