package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/sqlchanges/pkg/database"
	"github.com/stretchr/testify/require"
)

// SQLite opens a file backed SQLite database under t.TempDir() with the
// tracking tables already created. The database is closed on cleanup.
func SQLite(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(
		context.Background(),
		"sqlite",
		filepath.Join(t.TempDir(), "sqlchanges.db"),
		database.Options{},
	)
	require.NoError(t, err, "Failed to open sqlite database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Bootstrap(context.Background()), "Failed to bootstrap tracking tables")
	return db
}

// TableExists reports whether a table exists in a SQLite database.
func TableExists(t *testing.T, db *database.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow(
		context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		name,
	).Scan(&count)
	require.NoError(t, err)

	return count > 0
}

// Count returns the number of rows in table matching where.
func Count(t *testing.T, db *database.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	var count int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&count))
	return count
}
