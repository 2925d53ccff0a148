// Package ingest accepts sensor clients over TCP and runs each line
// through decode, validate, timestamp, encode, forward and echo.
//
// # Connection lifecycle
//
// Every accepted connection gets its own goroutine and ID. Lines are
// handled strictly in order:
//
//	read line ──► decode ──► validate ──► resolve ts ──► encode ──► forward ──► publish ──► echo
//	                │            │
//	                └─ malformed └─ out of range: audited, no echo, keep reading
//
// The echo is written whatever the forward outcome was. A line longer
// than the configured limit, EOF, or any read error ends the connection.
// A panic while handling one connection is recovered and closes only
// that connection.
//
// # Shutdown
//
// Cancelling the context passed to Serve closes the listener and every
// open connection, then waits for their handlers to return.
package ingest
