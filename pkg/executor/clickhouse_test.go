package executor_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/executor"
	"github.com/pseudomuto/sqlchanges/pkg/history"
	"github.com/pseudomuto/sqlchanges/pkg/lock"
	"github.com/pseudomuto/sqlchanges/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestClickHouse(t *testing.T) {
	db := testutil.ClickHouse(t)
	ctx := context.Background()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"changes/" + addUsers + "/change/001_create.sql": "CREATE TABLE users (id UInt64) ENGINE = MergeTree ORDER BY id",
		"changes/" + addUsers + "/change/002_seed.sql":   "INSERT INTO users VALUES (1), (2)",
		"changes/" + addUsers + "/revert/001_drop.sql":   "DROP TABLE users",
	})

	store := history.NewStore(db, history.Config{ConfigName: "integration"})
	locks := lock.NewManager(db, lock.Config{})
	exec := executor.New(executor.Config{
		DB:         db,
		History:    store,
		Locks:      locks,
		Identity:   "tester",
		ProjectDir: dir,
	})

	c, err := change.Parse(filepath.Join(dir, "changes", addUsers))
	require.NoError(t, err)

	res, err := exec.ExecuteChange(ctx, c, executor.Options{})
	require.NoError(t, err)
	require.Equal(t, executor.StatusSuccess, res.Status, "%v", res.Error)

	var count uint64
	require.NoError(t, db.QueryRow(ctx, "SELECT count() FROM users").Scan(&count))
	require.EqualValues(t, 2, count)

	files, err := store.GetFileHistory(ctx, res.OperationID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, history.StatusSuccess, files[1].Status)

	res, err = exec.ExecuteChange(ctx, c, executor.Options{})
	require.NoError(t, err)
	require.True(t, res.Skipped)

	held, err := locks.Status(ctx, "integration")
	require.NoError(t, err)
	require.Nil(t, held)

	res, err = exec.RevertChange(ctx, c, executor.Options{})
	require.NoError(t, err)
	require.Equal(t, executor.StatusSuccess, res.Status, "%v", res.Error)

	op, err := store.GetStatus(ctx, addUsers)
	require.NoError(t, err)
	require.Equal(t, history.StatusReverted, op.Status)

	purged, err := store.Purge(ctx, addUsers)
	require.NoError(t, err)
	require.Equal(t, 2, purged)
}
