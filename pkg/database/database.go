package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
)

type (
	// Options tune how a database is opened.
	Options struct {
		// TablePrefix names the tracking tables; defaults to "sqlchanges"
		TablePrefix string

		// TLS is applied by dialects that configure TLS in code (clickhouse)
		TLS TLSOptions
	}

	// DB is a database handle paired with its Dialect and tracking tables.
	DB struct {
		db      *sql.DB
		dialect Dialect
		tables  Tables
	}
)

// Open looks up the named dialect, connects to dsn and verifies the
// connection with a ping.
func Open(ctx context.Context, dialect, dsn string, opts Options) (*DB, error) {
	d, err := Lookup(dialect)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, errors.Errorf("no DSN configured for %s", d.Name())
	}

	sqlDB, err := d.Open(dsn, opts)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", d.Name())
	}

	return New(sqlDB, d, opts.TablePrefix), nil
}

// New wraps an existing connection. An empty prefix uses the default.
func New(db *sql.DB, dialect Dialect, prefix string) *DB {
	if prefix == "" {
		prefix = consts.DefaultTablePrefix
	}

	return &DB{
		db:      db,
		dialect: dialect,
		tables:  NewTables(dialect, prefix),
	}
}

func (d *DB) Dialect() Dialect { return d.dialect }
func (d *DB) Tables() Tables   { return d.tables }
func (d *DB) SQL() *sql.DB     { return d.db }

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Bootstrap creates the tracking tables if they do not already exist.
func (d *DB) Bootstrap(ctx context.Context) error {
	for _, stmt := range d.dialect.Schema(d.tables) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to create tracking tables (%s)", d.dialect.Name())
		}
	}

	return nil
}

// Exec runs query after rebinding its placeholders.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

// Query runs query after rebinding its placeholders.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

// QueryRow runs query after rebinding its placeholders.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

// ExecRaw executes change SQL exactly as written. Empty input is a no-op.
func (d *DB) ExecRaw(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	_, err := d.db.ExecContext(ctx, query)
	return err
}
