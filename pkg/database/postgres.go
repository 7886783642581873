package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/utils"

	// registers the "pgx" driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the dialect for PostgreSQL via pgx's database/sql driver.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }

func (Postgres) Open(dsn string, _ Options) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres database")
	}
	return db, nil
}

func (Postgres) Rebind(query string) string          { return rebindDollar(query) }
func (Postgres) QuoteIdent(name string) string       { return utils.QuoteIdentifier(name, '"') }
func (Postgres) EncodeTime(t time.Time) any          { return t.UTC() }
func (Postgres) DecodeTime(v any) (time.Time, error) { return decodeTime(v) }

func (Postgres) Update(table, set, where string) string {
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, set, where)
}

func (Postgres) Delete(table, where string) string {
	if where == "" {
		return "DELETE FROM " + table
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
}

func (Postgres) Schema(t Tables) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	config_name TEXT PRIMARY KEY,
	locked_by   TEXT NOT NULL,
	locked_at   TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
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
	executed_at   TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
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
	duration_ms   BIGINT NOT NULL DEFAULT 0
)`, t.Executions, t.Changeset),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (changeset_id, position)`,
			t.Index("executions_changeset_idx"), t.Executions),
	}
}
