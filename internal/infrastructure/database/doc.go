// Package database provides the SQLite connection that backs the persistent
// job store.
//
// This package manages:
//   - Database connection with WAL mode and a busy timeout
//   - A single-writer connection pool, so every write is serialised
//   - Embedded schema migrations, applied one transaction per migration
//   - Transaction helpers for multi-row writes
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_description.up.sql with a matching .down.sql.
package database
