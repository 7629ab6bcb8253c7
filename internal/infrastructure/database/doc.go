// Package database provides SQLite connectivity for Haven Core.
//
// It opens the database with WAL mode, foreign keys, and a busy timeout,
// restricts the file to owner read/write, and runs the embedded schema
// migrations. The topology tables use STRICT mode.
//
// The daemon holds a single pooled connection: SQLite allows one writer,
// and the core's write rate (topology edits from sessions) never needs
// more.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the migrations package as version-prefixed
// .up.sql/.down.sql pairs and are embedded into the binary.
package database
