package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type (
	// Dialect captures the differences between the supported databases.
	Dialect interface {
		// Name is the canonical dialect name used in configuration
		Name() string

		// DriverName is the database/sql driver the dialect registers
		DriverName() string

		// Open connects to the database described by dsn
		Open(dsn string, opts Options) (*sql.DB, error)

		// Rebind rewrites ? placeholders into the dialect's bind syntax
		Rebind(query string) string

		// QuoteIdent quotes a possibly dotted identifier
		QuoteIdent(name string) string

		// EncodeTime converts t into the value stored in timestamp columns
		EncodeTime(t time.Time) any

		// DecodeTime converts a scanned timestamp column back into a time.Time
		DecodeTime(v any) (time.Time, error)

		// Schema returns the statements that create the tracking tables
		Schema(t Tables) []string

		// Update builds an UPDATE statement for table
		Update(table, set, where string) string

		// Delete builds a DELETE statement for table
		Delete(table, where string) string
	}

	// Tables holds the quoted names of the tracking tables.
	Tables struct {
		Lock       string
		Changeset  string
		Executions string

		// prefix is the unquoted prefix, used to derive index names
		prefix string
	}
)

// textTimeLayout is fixed width so encoded values sort lexically.
const textTimeLayout = "2006-01-02 15:04:05.000000"

var dialects = map[string]Dialect{
	"sqlite":     SQLite{},
	"sqlite3":    SQLite{},
	"postgres":   Postgres{},
	"postgresql": Postgres{},
	"pgx":        Postgres{},
	"clickhouse": ClickHouse{},
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("unsupported dialect: %q", name)
	}
	return d, nil
}

// NewTables derives the tracking table names from prefix using d's quoting.
//
// Example:
//
//	database.NewTables(database.Postgres{}, "ops.sqlchanges")
//	// Lock: "ops"."sqlchanges_lock", Changeset: "ops"."sqlchanges_changeset", ...
func NewTables(d Dialect, prefix string) Tables {
	return Tables{
		Lock:       d.QuoteIdent(prefix + "_lock"),
		Changeset:  d.QuoteIdent(prefix + "_changeset"),
		Executions: d.QuoteIdent(prefix + "_executions"),
		prefix:     prefix,
	}
}

// Index returns an unqualified index name for the given suffix.
func (t Tables) Index(suffix string) string {
	name := t.prefix
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name + "_" + suffix
}

// rebindDollar rewrites ? placeholders as $1, $2, ... leaving quoted strings alone.
func rebindDollar(query string) string {
	var (
		b       strings.Builder
		n       int
		inQuote bool
	)

	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// decodeTime handles the representations drivers hand back for timestamp
// columns: native times, or text in textTimeLayout/RFC3339.
func decodeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, nil
		}
		return t.UTC(), nil
	case string:
		return parseTextTime(t)
	case []byte:
		return parseTextTime(string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, errors.Errorf("unsupported time value %T", v)
	}
}

func parseTextTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{textTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.Errorf("unable to parse time %q", s)
}
