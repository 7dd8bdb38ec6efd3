// Package database opens and migrates the SQLite file behind the
// optional device event history.
//
// WAL mode keeps history queries from blocking event inserts, the
// busy timeout absorbs lock contention, and the schema is applied
// from embedded migration files so the daemon binary is
// self-contained:
//
//	db, err := database.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only: new columns are nullable or carry
// defaults, columns are never dropped or renamed, and every step has
// an .up.sql with an optional .down.sql for rollback during
// development.
package database
