// Package logging provides structured logging for the sensor bridge.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: JSON in production, text while developing, and the
// service/version fields on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	connLog := logger.With("component", "ingest", "conn_id", id)
//	connLog.Info("connection opened", "peer", addr)
//
// # Security
//
// Never log the upstream token. Log the upstream URL and org/bucket only.
package logging
