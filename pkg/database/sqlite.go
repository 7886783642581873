package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/utils"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// SQLite is the dialect for modernc.org/sqlite.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite" }

// Open opens dsn, appending busy_timeout and foreign_keys pragmas so every
// pooled connection waits on a locked database instead of failing.
func (SQLite) Open(dsn string, _ Options) (*sql.DB, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	// a second connection to :memory: would see an empty database
	if memory {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

func (SQLite) Rebind(query string) string          { return query }
func (SQLite) QuoteIdent(name string) string       { return utils.QuoteIdentifier(name, '"') }
func (SQLite) EncodeTime(t time.Time) any          { return t.UTC().Format(textTimeLayout) }
func (SQLite) DecodeTime(v any) (time.Time, error) { return decodeTime(v) }

func (SQLite) Update(table, set, where string) string {
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, set, where)
}

func (SQLite) Delete(table, where string) string {
	if where == "" {
		return "DELETE FROM " + table
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
}

func (SQLite) Schema(t Tables) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	config_name TEXT PRIMARY KEY,
	locked_by   TEXT NOT NULL,
	locked_at   TEXT NOT NULL,
	expires_at  TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT ''
)`, t.Lock),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	change_type   TEXT NOT NULL,
	direction     TEXT NOT NULL,
	status        TEXT NOT NULL,
	config_name   TEXT NOT NULL,
	executed_by   TEXT NOT NULL,
	executed_at   TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	checksum      TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
)`, t.Changeset),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (config_name, name, executed_at)`,
			t.Index("changeset_name_idx"), t.Changeset),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            TEXT PRIMARY KEY,
	changeset_id  TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	filepath      TEXT NOT NULL,
	file_type     TEXT NOT NULL,
	checksum      TEXT NOT NULL,
	status        TEXT NOT NULL,
	skip_reason   TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0
)`, t.Executions, t.Changeset),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (changeset_id, position)`,
			t.Index("executions_changeset_idx"), t.Executions),
	}
}
