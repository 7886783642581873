package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/utils"
)

// ClickHouse is the dialect for clickhouse-go's database/sql interface.
//
// Tracking tables use MergeTree, so there is no primary key enforcement.
// UPDATE and DELETE are issued as mutations with mutations_sync=2, which
// makes them visible to the next read.
type ClickHouse struct{}

func (ClickHouse) Name() string       { return "clickhouse" }
func (ClickHouse) DriverName() string { return "clickhouse" }

func (ClickHouse) Open(dsn string, opts Options) (*sql.DB, error) {
	chOpts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse clickhouse DSN")
	}

	if chOpts.Settings == nil {
		chOpts.Settings = clickhouse.Settings{}
	}
	chOpts.Settings["mutations_sync"] = 2

	if opts.TLS.Enabled() {
		tlsConfig, err := GetTLSConfig(opts.TLS)
		if err != nil {
			return nil, err
		}
		chOpts.TLS = tlsConfig
	}

	return clickhouse.OpenDB(chOpts), nil
}

func (ClickHouse) Rebind(query string) string          { return query }
func (ClickHouse) QuoteIdent(name string) string       { return utils.QuoteIdentifier(name, '`') }
func (ClickHouse) EncodeTime(t time.Time) any          { return t.UTC() }
func (ClickHouse) DecodeTime(v any) (time.Time, error) { return decodeTime(v) }

func (ClickHouse) Update(table, set, where string) string {
	return fmt.Sprintf("ALTER TABLE %s UPDATE %s WHERE %s", table, set, where)
}

func (ClickHouse) Delete(table, where string) string {
	if where == "" {
		where = "1"
	}
	return fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s", table, where)
}

func (ClickHouse) Schema(t Tables) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	config_name String,
	locked_by   String,
	locked_at   DateTime64(6, 'UTC'),
	expires_at  DateTime64(6, 'UTC'),
	reason      String DEFAULT ''
)
ENGINE = MergeTree
ORDER BY config_name`, t.Lock),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            String,
	name          String,
	change_type   LowCardinality(String),
	direction     LowCardinality(String),
	status        LowCardinality(String),
	config_name   String,
	executed_by   String,
	executed_at   DateTime64(6, 'UTC'),
	duration_ms   Int64 DEFAULT 0,
	checksum      String,
	error_message String DEFAULT ''
)
ENGINE = MergeTree
ORDER BY (config_name, name, id)`, t.Changeset),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            String,
	changeset_id  String,
	position      Int32,
	filepath      String,
	file_type     LowCardinality(String),
	checksum      String,
	status        LowCardinality(String),
	skip_reason   String DEFAULT '',
	error_message String DEFAULT '',
	duration_ms   Int64 DEFAULT 0
)
ENGINE = MergeTree
ORDER BY (changeset_id, position)`, t.Executions),
	}
}
