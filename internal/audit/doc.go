// Package audit records what happened to every connection and line.
//
// The ingest path emits Events through a Recorder. Recorders are sinks:
// the structured log (LogRecorder), the append-only server.log file
// (FileRecorder) and the audit_logs SQLite table (SQLiteRepository).
// Multi fans one event out to all of them.
//
// Recorders must be safe for concurrent use; every connection handler
// shares them.
package audit
