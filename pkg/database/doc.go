// Package database wraps a database/sql handle with the dialect specific
// behaviour sqlchanges needs to keep its tracking tables in the same
// database it applies changes to.
//
// Three dialects are supported:
//
//   - sqlite: modernc.org/sqlite, timestamps stored as fixed width UTC text
//   - postgres: github.com/jackc/pgx/v5/stdlib, native TIMESTAMPTZ columns
//   - clickhouse: github.com/ClickHouse/clickhouse-go/v2, MergeTree tables with
//     synchronous mutations for updates and deletes
//
// Queries inside sqlchanges are written with ? placeholders and plain UPDATE
// and DELETE statements; the Dialect rewrites them where a database needs
// something else.
//
// Change files are sent to the driver as written. The clickhouse driver
// accepts a single statement per Exec, so ClickHouse changes hold one
// statement per file.
//
// # Usage Example
//
//	db, err := database.Open(ctx, "sqlite", "app.db", database.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Bootstrap(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	if err := db.ExecRaw(ctx, "CREATE TABLE users(id INT)"); err != nil {
//		log.Fatal(err)
//	}
package database
