// Package database provides the SQLite store behind the audit trail.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying embedded, forward-only schema migrations
//   - Health checks for the ops API
//
// The audit trail is append-only, so migrations only ever move forward:
// there is no down step.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/audit.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
